package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type HoldKind string

const (
	HoldKindReservation HoldKind = "reservation"
	HoldKindTestDrive   HoldKind = "test_drive"
)

func ParseHoldKind(s string) (HoldKind, error) {
	switch HoldKind(s) {
	case HoldKindReservation, HoldKindTestDrive:
		return HoldKind(s), nil
	}
	return "", fmt.Errorf("unknown hold kind %q", s)
}

type HoldStatus string

const (
	HoldStatusPending   HoldStatus = "PENDING"
	HoldStatusConfirmed HoldStatus = "CONFIRMED"
	HoldStatusCancelled HoldStatus = "CANCELLED"
)

// HoldRequest is a customer's claim on a vehicle, either a purchase
// reservation or a test-drive booking. Created in PENDING by a public
// submission; only an operator confirmation mutates the vehicle.
type HoldRequest struct {
	ID            int64
	Kind          HoldKind
	VehicleID     int64
	Reference     string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Status        HoldStatus
	PreferredDate string
	PreferredTime string
	// HoldExpiry is set when the hold is confirmed and mirrors
	// vehicles.hold_expiry at that moment.
	HoldExpiry *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SyntheticIDPrefix marks reconciliation entries that have no backing
// hold_requests row.
const SyntheticIDPrefix = "vehicle-"

// SyntheticHoldID formats the non-persisted id for a vehicle that is
// reserved without a hold row.
func SyntheticHoldID(vehicleID int64) string {
	return fmt.Sprintf("%s%d", SyntheticIDPrefix, vehicleID)
}

// ParseSyntheticHoldID returns the vehicle id encoded in a synthetic hold id.
func ParseSyntheticHoldID(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(id, SyntheticIDPrefix)
	if !ok {
		return 0, false
	}
	vehicleID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || vehicleID <= 0 {
		return 0, false
	}
	return vehicleID, true
}

// ActiveHold is a row of the operator reconciliation view: a real hold
// request joined with its vehicle, or a synthetic placeholder for a reserved
// vehicle that no hold row covers.
type ActiveHold struct {
	ID            string
	Kind          HoldKind
	VehicleID     int64
	VehicleMake   string
	VehicleModel  string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Status        HoldStatus
	HoldExpiry    *time.Time
	CreatedAt     time.Time
	Synthetic     bool
}
