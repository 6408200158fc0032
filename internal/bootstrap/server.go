package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dkoryagin/vehiclehold/api"
	"github.com/dkoryagin/vehiclehold/config"
	"github.com/dkoryagin/vehiclehold/internal/service/holds"
	"github.com/dkoryagin/vehiclehold/internal/service/vehicles"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, vehicleSvc vehicles.VehicleUseCase, holdSvc holds.HoldUseCase) error {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	api.NewHoldHandler(holdSvc).Register(router.Group("/holds"))
	api.NewVehicleHandler(vehicleSvc, holdSvc).Register(router.Group("/vehicles"))

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFS("/swagger-spec", http.Dir(cfg.HTTP.SwaggerDir))
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger-spec/vehiclehold.swagger.json"),
		)))
	}

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
