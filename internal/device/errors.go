package device

import (
	"errors"
	"fmt"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrDeviceExists) {
//	    // serial or IMEI already registered
//	}
var (
	// ErrDeviceNotFound is returned when a device ID or serial does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when a serial or IMEI is already registered.
	// *ConflictError unwraps to it.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidSerial is returned when the serial is empty after trimming.
	ErrInvalidSerial = errors.New("device: serial number is required")

	// ErrInvalidIMEI is returned when both IMEI slots carry the same value.
	ErrInvalidIMEI = errors.New("device: imei_1 and imei_2 must differ")

	// ErrPersistence is returned when the underlying store fails.
	ErrPersistence = errors.New("device: storage unavailable")
)

// ConflictReason says which identifier collided.
type ConflictReason string

// Conflict reasons. A serial match is always reported in preference to an
// IMEI match.
const (
	ReasonSerial ConflictReason = "serial"
	ReasonIMEI   ConflictReason = "imei"
)

// Conflict is an existing device colliding with a candidate.
type Conflict struct {
	Reason   ConflictReason
	Existing Device
}

// ConflictError is returned by writes rejected because of a Conflict.
type ConflictError struct {
	Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("device: %s already registered to %s", e.Reason, e.Existing.Serial)
}

// Unwrap lets errors.Is(err, ErrDeviceExists) match.
func (e *ConflictError) Unwrap() error {
	return ErrDeviceExists
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidSerial) || errors.Is(err, ErrInvalidIMEI)
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
