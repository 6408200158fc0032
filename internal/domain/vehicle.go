package domain

import "time"

type VehicleStatus string

const (
	VehicleStatusAvailable VehicleStatus = "AVAILABLE"
	VehicleStatusReserved  VehicleStatus = "RESERVED"
	VehicleStatusSold      VehicleStatus = "SOLD"
	// VehicleStatusPending is an administrative state (paperwork in flight),
	// unrelated to holds.
	VehicleStatusPending VehicleStatus = "PENDING"
)

type Vehicle struct {
	ID         int64
	Make       string
	Model      string
	Year       int
	PriceCents int64
	Status     VehicleStatus
	// HoldExpiry is meaningful only while Status is RESERVED.
	HoldExpiry *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
