package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dkoryagin/vehiclehold/internal/domain"
	"github.com/dkoryagin/vehiclehold/internal/service/vehicles"
	"github.com/gin-gonic/gin"
)

// Sweeper releases lapsed holds on demand.
type Sweeper interface {
	SweepExpired(ctx context.Context) ([]domain.Vehicle, error)
}

type VehicleHandler struct {
	service vehicles.VehicleUseCase
	sweeper Sweeper
}

type vehicleResponse struct {
	ID         int64  `json:"id"`
	Make       string `json:"make"`
	Model      string `json:"model"`
	Year       int    `json:"year"`
	PriceCents int64  `json:"price_cents"`
	Status     string `json:"status"`
	HoldExpiry string `json:"hold_expiry,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func NewVehicleHandler(service vehicles.VehicleUseCase, sweeper Sweeper) *VehicleHandler {
	return &VehicleHandler{service: service, sweeper: sweeper}
}

func (h *VehicleHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("/sweep-expired", h.sweep)
}

func (h *VehicleHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]vehicleResponse, 0, len(list))
	for _, v := range list {
		resp = append(resp, toVehicleResponse(v))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VehicleHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	vehicle, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toVehicleResponse(*vehicle))
}

func (h *VehicleHandler) sweep(c *gin.Context) {
	released, err := h.sweeper.SweepExpired(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]vehicleResponse, 0, len(released))
	for _, v := range released {
		resp = append(resp, toVehicleResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(resp), "released": resp})
}

func toVehicleResponse(v domain.Vehicle) vehicleResponse {
	resp := vehicleResponse{
		ID:         v.ID,
		Make:       v.Make,
		Model:      v.Model,
		Year:       v.Year,
		PriceCents: v.PriceCents,
		Status:     string(v.Status),
		CreatedAt:  v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  v.UpdatedAt.Format(time.RFC3339),
	}
	if v.HoldExpiry != nil {
		resp.HoldExpiry = v.HoldExpiry.Format(time.RFC3339)
	}
	return resp
}
