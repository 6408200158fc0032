package holds

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/dkoryagin/vehiclehold/internal/clock"
	"github.com/dkoryagin/vehiclehold/internal/domain"
	"github.com/dkoryagin/vehiclehold/internal/kafka"
	"github.com/dkoryagin/vehiclehold/internal/repository"
	"github.com/google/uuid"
)

type HoldUseCase interface {
	CreateHold(ctx context.Context, input CreateHoldInput) (*domain.HoldRequest, error)
	SetHoldStatus(ctx context.Context, kind domain.HoldKind, id int64, target domain.HoldStatus) (*domain.HoldRequest, error)
	RejectHold(ctx context.Context, kind domain.HoldKind, id int64) (*domain.HoldRequest, error)
	CancelHold(ctx context.Context, kind domain.HoldKind, id int64) error
	ReleaseVehicleHold(ctx context.Context, vehicleID int64) error
	ListActiveHolds(ctx context.Context) ([]domain.ActiveHold, error)
	ListVehicleHolds(ctx context.Context, vehicleID int64) ([]domain.HoldRequest, error)
	SweepExpired(ctx context.Context) ([]domain.Vehicle, error)
}

type Cache interface {
	AcquireConfirmLock(ctx context.Context, vehicleID int64, ttl time.Duration) (bool, error)
	ReleaseConfirmLock(ctx context.Context, vehicleID int64) error
	InvalidateVehicles(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// preferredLayout is how the customer-submitted date and time combine into a
// hold window timestamp.
const preferredLayout = "2006-01-02T15:04:05"

const defaultConfirmLockTTL = 10 * time.Second

type HoldService struct {
	holds              repository.HoldRepository
	vehicles           repository.VehicleRepository
	cache              Cache
	producer           Producer
	clock              clock.Clock
	holdsTopic         string
	notificationsTopic string
	confirmLockTTL     time.Duration
}

type HoldServiceOption func(*HoldService)

func WithNotificationsTopic(topic string) HoldServiceOption {
	return func(s *HoldService) {
		s.notificationsTopic = topic
	}
}

func WithConfirmLockTTL(ttl time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if ttl > 0 {
			s.confirmLockTTL = ttl
		}
	}
}

func NewHoldService(
	holds repository.HoldRepository,
	vehicles repository.VehicleRepository,
	cache Cache,
	producer Producer,
	clk clock.Clock,
	holdsTopic string,
	opts ...HoldServiceOption,
) *HoldService {
	service := &HoldService{
		holds:          holds,
		vehicles:       vehicles,
		cache:          cache,
		producer:       producer,
		clock:          clk,
		holdsTopic:     holdsTopic,
		confirmLockTTL: defaultConfirmLockTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

type CreateHoldInput struct {
	Kind          domain.HoldKind
	VehicleID     int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	PreferredDate string
	PreferredTime string
}

// CreateHold records a pending hold request. The vehicle is not touched
// until an operator confirms.
func (s *HoldService) CreateHold(ctx context.Context, input CreateHoldInput) (*domain.HoldRequest, error) {
	if input.VehicleID <= 0 {
		return nil, errors.New("vehicle_id is required")
	}
	if _, err := domain.ParseHoldKind(string(input.Kind)); err != nil {
		return nil, err
	}

	if _, err := s.vehicles.GetByID(ctx, input.VehicleID); err != nil {
		return nil, err
	}

	hold := &domain.HoldRequest{
		Kind:          input.Kind,
		VehicleID:     input.VehicleID,
		Reference:     uuid.NewString(),
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
		PreferredDate: input.PreferredDate,
		PreferredTime: input.PreferredTime,
	}
	if err := s.holds.Create(ctx, hold); err != nil {
		return nil, err
	}

	s.publish(ctx, "hold_created", hold)
	return hold, nil
}

// SetHoldStatus is the operator decision on a hold request. Confirmation
// reserves the vehicle; cancellation releases it when the hold had been
// confirmed, and is a plain rejection while the hold is still pending.
// Both hold and vehicle rows are written in one transaction.
func (s *HoldService) SetHoldStatus(ctx context.Context, kind domain.HoldKind, id int64, target domain.HoldStatus) (*domain.HoldRequest, error) {
	if target != domain.HoldStatusConfirmed && target != domain.HoldStatusCancelled {
		return nil, domain.ErrInvalidHoldStatus
	}

	current, err := s.holds.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if target == domain.HoldStatusConfirmed && s.cache != nil {
		ok, err := s.cache.AcquireConfirmLock(ctx, current.VehicleID, s.confirmLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrVehicleUnavailable
		}
		defer func() {
			_ = s.cache.ReleaseConfirmLock(ctx, current.VehicleID)
		}()
	}

	var updated *domain.HoldRequest
	err = s.holds.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.holds.GetByID(txCtx, kind, id)
		if err != nil {
			return err
		}

		if target == domain.HoldStatusConfirmed {
			updated, err = s.confirmInTx(txCtx, hold)
			return err
		}

		updated, err = s.holds.UpdateStatus(txCtx, hold.ID, domain.HoldStatusCancelled, nil)
		if err != nil {
			return err
		}
		if hold.Status != domain.HoldStatusConfirmed {
			// Rejection of a pending hold; the vehicle was never mutated.
			return nil
		}
		return s.releaseIfReserved(txCtx, hold.VehicleID)
	})
	if err != nil {
		return nil, err
	}

	eventType := "hold_confirmed"
	if target == domain.HoldStatusCancelled {
		eventType = "hold_cancelled"
	}
	s.publish(ctx, eventType, updated)
	s.invalidateListing(ctx)
	return updated, nil
}

func (s *HoldService) confirmInTx(ctx context.Context, hold *domain.HoldRequest) (*domain.HoldRequest, error) {
	expiry := s.combineHoldExpiry(hold)

	vehicle, err := s.vehicles.GetByIDForUpdate(ctx, hold.VehicleID)
	if err != nil {
		return nil, err
	}
	switch vehicle.Status {
	case domain.VehicleStatusAvailable:
	case domain.VehicleStatusReserved:
		// Only the hold that currently owns the reservation may re-confirm,
		// e.g. to move its window. A hold whose recorded expiry no longer
		// matches the vehicle's was swept and superseded; letting it through
		// would overwrite the live holder.
		if hold.Status != domain.HoldStatusConfirmed || !sameExpiry(hold.HoldExpiry, vehicle.HoldExpiry) {
			return nil, domain.ErrVehicleUnavailable
		}
	default:
		return nil, domain.ErrVehicleUnavailable
	}

	vehicleExpiry := expiry
	if vehicleExpiry == nil {
		vehicleExpiry = vehicle.HoldExpiry
	}

	updated, err := s.holds.UpdateStatus(ctx, hold.ID, domain.HoldStatusConfirmed, expiry)
	if err != nil {
		return nil, err
	}
	if err := s.vehicles.SetStatus(ctx, vehicle.ID, domain.VehicleStatusReserved, vehicleExpiry); err != nil {
		return nil, err
	}
	return updated, nil
}

// RejectHold cancels a hold that was never confirmed, leaving the vehicle
// untouched.
func (s *HoldService) RejectHold(ctx context.Context, kind domain.HoldKind, id int64) (*domain.HoldRequest, error) {
	current, err := s.holds.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.HoldStatusPending {
		return nil, domain.ErrHoldNotPending
	}

	updated, err := s.holds.UpdateStatus(ctx, current.ID, domain.HoldStatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "hold_rejected", updated)
	return updated, nil
}

// CancelHold deletes the hold row and releases its vehicle if that vehicle
// is currently reserved.
func (s *HoldService) CancelHold(ctx context.Context, kind domain.HoldKind, id int64) error {
	var removed *domain.HoldRequest
	err := s.holds.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.holds.GetByID(txCtx, kind, id)
		if err != nil {
			return err
		}
		removed = hold

		if err := s.holds.Delete(txCtx, kind, id); err != nil {
			return err
		}
		return s.releaseIfReserved(txCtx, hold.VehicleID)
	})
	if err != nil {
		return err
	}

	removed.Status = domain.HoldStatusCancelled
	s.publish(ctx, "hold_cancelled", removed)
	s.invalidateListing(ctx)
	return nil
}

// ReleaseVehicleHold frees a vehicle that is reserved without a backing hold
// row (a synthetic entry in the reconciliation view).
func (s *HoldService) ReleaseVehicleHold(ctx context.Context, vehicleID int64) error {
	err := s.vehicles.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.vehicles.GetByIDForUpdate(txCtx, vehicleID); err != nil {
			return err
		}
		return s.releaseIfReserved(txCtx, vehicleID)
	})
	if err != nil {
		return err
	}

	s.publishVehicleEvent(ctx, "hold_cancelled", vehicleID, nil)
	s.invalidateListing(ctx)
	return nil
}

func sameExpiry(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (s *HoldService) releaseIfReserved(ctx context.Context, vehicleID int64) error {
	vehicle, err := s.vehicles.GetByIDForUpdate(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, domain.ErrVehicleNotFound) {
			return nil
		}
		return err
	}
	if vehicle.Status != domain.VehicleStatusReserved {
		return nil
	}
	return s.vehicles.SetStatus(ctx, vehicleID, domain.VehicleStatusAvailable, nil)
}

// ListActiveHolds merges hold requests with reserved vehicles that have no
// hold row, so every reserved vehicle shows up exactly once for operators.
func (s *HoldService) ListActiveHolds(ctx context.Context) ([]domain.ActiveHold, error) {
	withVehicles, err := s.holds.ListAllWithVehicle(ctx)
	if err != nil {
		return nil, err
	}
	reserved, err := s.vehicles.ListByStatus(ctx, domain.VehicleStatusReserved)
	if err != nil {
		return nil, err
	}

	covered := make(map[int64]bool, len(withVehicles))
	merged := make([]domain.ActiveHold, 0, len(withVehicles)+len(reserved))
	for _, hw := range withVehicles {
		covered[hw.Hold.VehicleID] = true
		merged = append(merged, domain.ActiveHold{
			ID:            strconvID(hw.Hold.ID),
			Kind:          hw.Hold.Kind,
			VehicleID:     hw.Hold.VehicleID,
			VehicleMake:   hw.VehicleMake,
			VehicleModel:  hw.VehicleModel,
			CustomerName:  hw.Hold.CustomerName,
			CustomerEmail: hw.Hold.CustomerEmail,
			CustomerPhone: hw.Hold.CustomerPhone,
			Status:        hw.Hold.Status,
			HoldExpiry:    hw.Hold.HoldExpiry,
			CreatedAt:     hw.Hold.CreatedAt,
		})
	}
	for _, v := range reserved {
		if covered[v.ID] {
			continue
		}
		merged = append(merged, domain.ActiveHold{
			ID:           domain.SyntheticHoldID(v.ID),
			VehicleID:    v.ID,
			VehicleMake:  v.Make,
			VehicleModel: v.Model,
			CustomerName: "Unknown",
			Status:       domain.HoldStatusConfirmed,
			HoldExpiry:   v.HoldExpiry,
			CreatedAt:    v.UpdatedAt,
			Synthetic:    true,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

// ListVehicleHolds returns the hold history of one vehicle, both kinds,
// newest first.
func (s *HoldService) ListVehicleHolds(ctx context.Context, vehicleID int64) ([]domain.HoldRequest, error) {
	if _, err := s.vehicles.GetByID(ctx, vehicleID); err != nil {
		return nil, err
	}
	return s.holds.ListByVehicle(ctx, vehicleID)
}

// SweepExpired releases every vehicle whose hold window has lapsed. The
// update is conditional in the store, so a second run with no new
// confirmations releases nothing.
func (s *HoldService) SweepExpired(ctx context.Context) ([]domain.Vehicle, error) {
	released, err := s.vehicles.ReleaseExpiredBefore(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	for _, v := range released {
		s.publishVehicleEvent(ctx, "hold_expired", v.ID, nil)
	}
	if len(released) > 0 {
		s.invalidateListing(ctx)
	}
	return released, nil
}

// combineHoldExpiry derives the hold window from the customer's preferred
// date and time. Unparseable input does not block the confirmation: the hold
// proceeds with no expiry and a warning is emitted, because operators would
// rather fix the window by hand than bounce the customer.
func (s *HoldService) combineHoldExpiry(hold *domain.HoldRequest) *time.Time {
	if hold.PreferredDate == "" || hold.PreferredTime == "" {
		return nil
	}
	raw := hold.PreferredDate + "T" + hold.PreferredTime
	t, err := time.Parse(preferredLayout, raw)
	if err != nil {
		log.Printf("WARN: unparseable hold window hold_id=%d kind=%s value=%q err=%v; confirming without expiry", hold.ID, hold.Kind, raw, err)
		return nil
	}
	return &t
}

func (s *HoldService) publish(ctx context.Context, eventType string, hold *domain.HoldRequest) {
	if s.producer == nil || s.holdsTopic == "" || hold == nil {
		return
	}
	event := kafka.HoldEvent{
		Type:          eventType,
		Reference:     hold.Reference,
		HoldID:        strconvID(hold.ID),
		Kind:          string(hold.Kind),
		VehicleID:     hold.VehicleID,
		CustomerEmail: hold.CustomerEmail,
		Status:        string(hold.Status),
		HoldExpiry:    hold.HoldExpiry,
	}
	if err := s.producer.Publish(ctx, s.holdsTopic, hold.Reference, event); err != nil {
		log.Printf("WARN: publish %s for hold %s: %v", eventType, hold.Reference, err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, hold.Reference, event); err != nil {
			log.Printf("WARN: publish %s notification for hold %s: %v", eventType, hold.Reference, err)
		}
	}
}

// publishVehicleEvent covers transitions with no backing hold row (sweep
// releases and synthetic cancellations).
func (s *HoldService) publishVehicleEvent(ctx context.Context, eventType string, vehicleID int64, expiry *time.Time) {
	if s.producer == nil || s.holdsTopic == "" {
		return
	}
	key := domain.SyntheticHoldID(vehicleID)
	event := kafka.HoldEvent{
		Type:       eventType,
		HoldID:     key,
		VehicleID:  vehicleID,
		Status:     string(domain.HoldStatusCancelled),
		HoldExpiry: expiry,
	}
	if err := s.producer.Publish(ctx, s.holdsTopic, key, event); err != nil {
		log.Printf("WARN: publish %s for vehicle %d: %v", eventType, vehicleID, err)
	}
}

func (s *HoldService) invalidateListing(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateVehicles(ctx); err != nil {
		log.Printf("WARN: invalidate vehicle listing cache: %v", err)
	}
}

var _ HoldUseCase = (*HoldService)(nil)
