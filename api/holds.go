package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dkoryagin/vehiclehold/internal/domain"
	"github.com/dkoryagin/vehiclehold/internal/service/holds"
	"github.com/gin-gonic/gin"
)

type HoldHandler struct {
	service holds.HoldUseCase
}

func NewHoldHandler(service holds.HoldUseCase) *HoldHandler {
	return &HoldHandler{service: service}
}

func (h *HoldHandler) Register(router *gin.RouterGroup) {
	router.POST("/reservations", h.createReservation)
	router.POST("/test-drives", h.createTestDrive)
	router.PATCH("/:kind/:id/status", h.setStatus)
	router.DELETE("/:kind/:id", h.cancel)
	router.GET("/active", h.listActive)
	router.GET("/vehicles/:id", h.listByVehicle)
}

type createHoldRequest struct {
	VehicleID     int64  `json:"vehicle_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	PreferredDate string `json:"preferred_date"`
	PreferredTime string `json:"preferred_time"`
}

type holdResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Reference     string `json:"reference"`
	VehicleID     int64  `json:"vehicle_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Status        string `json:"status"`
	PreferredDate string `json:"preferred_date"`
	PreferredTime string `json:"preferred_time"`
	HoldExpiry    string `json:"hold_expiry,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type activeHoldResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind,omitempty"`
	VehicleID     int64  `json:"vehicle_id"`
	VehicleMake   string `json:"vehicle_make"`
	VehicleModel  string `json:"vehicle_model"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Status        string `json:"status"`
	HoldExpiry    string `json:"hold_expiry,omitempty"`
	CreatedAt     string `json:"created_at"`
	Synthetic     bool   `json:"synthetic"`
}

func (h *HoldHandler) createReservation(c *gin.Context) {
	h.create(c, domain.HoldKindReservation)
}

func (h *HoldHandler) createTestDrive(c *gin.Context) {
	h.create(c, domain.HoldKindTestDrive)
}

func (h *HoldHandler) create(c *gin.Context, kind domain.HoldKind) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.VehicleID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle_id is required"})
		return
	}

	hold, err := h.service.CreateHold(c.Request.Context(), holds.CreateHoldInput{
		Kind:          kind,
		VehicleID:     req.VehicleID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
	})
	if err != nil {
		writeHoldError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusCreated, toHoldResponse(hold))
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *HoldHandler) setStatus(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Status == "rejected" || req.Status == "REJECTED" {
		hold, err := h.service.RejectHold(c.Request.Context(), kind, id)
		if err != nil {
			writeHoldError(c, err, http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, toHoldResponse(hold))
		return
	}

	target, err := targetStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hold, err := h.service.SetHoldStatus(c.Request.Context(), kind, id, target)
	if err != nil {
		writeHoldError(c, err, http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, toHoldResponse(hold))
}

func (h *HoldHandler) cancel(c *gin.Context) {
	rawID := c.Param("id")
	if vehicleID, ok := domain.ParseSyntheticHoldID(rawID); ok {
		// Synthetic holds have no row to delete; release the vehicle directly.
		if err := h.service.ReleaseVehicleHold(c.Request.Context(), vehicleID); err != nil {
			writeHoldError(c, err, http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"released": true, "vehicle_id": vehicleID})
		return
	}

	kind, ok := kindParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.service.CancelHold(c.Request.Context(), kind, id); err != nil {
		writeHoldError(c, err, http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (h *HoldHandler) listActive(c *gin.Context) {
	active, err := h.service.ListActiveHolds(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]activeHoldResponse, 0, len(active))
	for _, a := range active {
		item := activeHoldResponse{
			ID:            a.ID,
			Kind:          string(a.Kind),
			VehicleID:     a.VehicleID,
			VehicleMake:   a.VehicleMake,
			VehicleModel:  a.VehicleModel,
			CustomerName:  a.CustomerName,
			CustomerEmail: a.CustomerEmail,
			CustomerPhone: a.CustomerPhone,
			Status:        string(a.Status),
			CreatedAt:     a.CreatedAt.Format(time.RFC3339),
			Synthetic:     a.Synthetic,
		}
		if a.HoldExpiry != nil {
			item.HoldExpiry = a.HoldExpiry.Format(time.RFC3339)
		}
		resp = append(resp, item)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HoldHandler) listByVehicle(c *gin.Context) {
	vehicleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	list, err := h.service.ListVehicleHolds(c.Request.Context(), vehicleID)
	if err != nil {
		writeHoldError(c, err, http.StatusInternalServerError)
		return
	}

	resp := make([]holdResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toHoldResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func kindParam(c *gin.Context) (domain.HoldKind, bool) {
	raw := c.Param("kind")
	switch raw {
	case "reservations":
		raw = string(domain.HoldKindReservation)
	case "test-drives":
		raw = string(domain.HoldKindTestDrive)
	}
	kind, err := domain.ParseHoldKind(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return kind, true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown hold id"})
		return 0, false
	}
	return id, true
}

func targetStatus(s string) (domain.HoldStatus, error) {
	switch s {
	case "confirmed", string(domain.HoldStatusConfirmed):
		return domain.HoldStatusConfirmed, nil
	case "cancelled", string(domain.HoldStatusCancelled):
		return domain.HoldStatusCancelled, nil
	}
	return "", errors.New("status must be confirmed, cancelled or rejected")
}

func toHoldResponse(hold *domain.HoldRequest) holdResponse {
	resp := holdResponse{
		ID:            strconv.FormatInt(hold.ID, 10),
		Kind:          string(hold.Kind),
		Reference:     hold.Reference,
		VehicleID:     hold.VehicleID,
		CustomerName:  hold.CustomerName,
		CustomerEmail: hold.CustomerEmail,
		CustomerPhone: hold.CustomerPhone,
		Status:        string(hold.Status),
		PreferredDate: hold.PreferredDate,
		PreferredTime: hold.PreferredTime,
		CreatedAt:     hold.CreatedAt.Format(time.RFC3339),
	}
	if hold.HoldExpiry != nil {
		resp.HoldExpiry = hold.HoldExpiry.Format(time.RFC3339)
	}
	return resp
}

func writeHoldError(c *gin.Context, err error, fallback int) {
	switch {
	case errors.Is(err, domain.ErrHoldNotFound), errors.Is(err, domain.ErrVehicleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrVehicleUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidHoldStatus), errors.Is(err, domain.ErrHoldNotPending):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(fallback, gin.H{"error": err.Error()})
	}
}
