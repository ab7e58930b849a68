package trust

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound is returned when no trust record exists for a user
	ErrRecordNotFound = errors.New("trust record not found")

	// ErrRecordExists is returned by CreateUser when the user already has a trust record
	ErrRecordExists = errors.New("trust record already exists")

	// ErrUnregisteredDevice is returned when an operation addresses a UDID the user never registered
	ErrUnregisteredDevice = errors.New("device is not registered")

	// ErrVersionConflict is returned by Upsert when the stored record version does not match
	ErrVersionConflict = errors.New("trust record version conflict")
)

// ErrInvalidTransition is returned by SetDeviceStatus when the requested
// status change is not in the transition table.
type ErrInvalidTransition struct {
	From DeviceStatus
	To   DeviceStatus
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid device status transition: %s -> %s", e.From, e.To)
}
