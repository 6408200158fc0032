package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkoryagin/vehiclehold/config"
	"github.com/dkoryagin/vehiclehold/internal/bootstrap"
	"github.com/dkoryagin/vehiclehold/internal/cache"
	"github.com/dkoryagin/vehiclehold/internal/clock"
	"github.com/dkoryagin/vehiclehold/internal/kafka"
	"github.com/dkoryagin/vehiclehold/internal/repository"
	"github.com/dkoryagin/vehiclehold/internal/service/holds"
	"github.com/dkoryagin/vehiclehold/internal/service/vehicles"
	"github.com/dkoryagin/vehiclehold/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Holds.VehiclesCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	vehicleRepo := repository.NewVehicleRepository(pool)
	holdRepo := repository.NewHoldRepository(pool)
	vehicleService := vehicles.NewVehicleService(vehicleRepo, redisCache)
	holdService := holds.NewHoldService(
		holdRepo,
		vehicleRepo,
		redisCache,
		producer,
		clock.NewSystem(),
		cfg.Kafka.HoldsTopic,
		holds.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		holds.WithConfirmLockTTL(time.Duration(cfg.Holds.ConfirmLockSeconds)*time.Second),
	)

	if err := bootstrap.Run(ctx, cfg, vehicleService, holdService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
