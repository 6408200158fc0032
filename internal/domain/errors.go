package domain

import "errors"

var (
	ErrVehicleNotFound    = errors.New("vehicle not found")
	ErrHoldNotFound       = errors.New("hold not found")
	ErrVehicleUnavailable = errors.New("vehicle is not available")
	ErrHoldNotPending     = errors.New("hold is not pending")
	ErrInvalidHoldStatus  = errors.New("invalid hold status")
)
