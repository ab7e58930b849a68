package trust

import (
	"context"
	"time"
)

// DeviceStatus is the trust state of a single device. The wire values are
// shared with the mobile backend and must not change.
type DeviceStatus string

const (
	StatusTrusted    DeviceStatus = "trusted"
	StatusUntrusted  DeviceStatus = "untrusted"
	StatusInProgress DeviceStatus = "inProgress"
	StatusDeleted    DeviceStatus = "deleted"
)

// allowedTransitions is the legality table for SetDeviceStatus. A device may
// always "transition" to its current status (no-op).
var allowedTransitions = map[DeviceStatus]map[DeviceStatus]bool{
	StatusTrusted:    {StatusUntrusted: true, StatusDeleted: true},
	StatusUntrusted:  {StatusTrusted: true, StatusDeleted: true},
	StatusInProgress: {StatusTrusted: true, StatusUntrusted: true, StatusDeleted: true},
	StatusDeleted:    {StatusInProgress: true},
}

// CanTransition reports whether a device may move from one status to another.
func CanTransition(from, to DeviceStatus) bool {
	if from == to {
		return true
	}
	return allowedTransitions[from][to]
}

// PinTry is one recorded PIN attempt outcome. Immutable once created.
type PinTry struct {
	AttemptAt time.Time `json:"attempt_date"`
	Blocked   bool      `json:"blocked"`
}

// DeviceStatusInfo carries a device's status together with the UDID of the
// trusted device that licensed it. LicensorUDID is empty when the transition
// was not licensed by another device (e.g. a freshly added device).
type DeviceStatusInfo struct {
	Status       DeviceStatus `json:"status"`
	LicensorUDID string       `json:"licensor_udid,omitempty"`
	UpdatedAt    time.Time    `json:"update_time"`
}

// Device is one device registered for a user. PinTries holds the most recent
// attempts, capped at the configured maximum; the last element is always the
// newest attempt.
type Device struct {
	UDID       string           `json:"udid"`
	StatusInfo DeviceStatusInfo `json:"status_info"`
	PinTries   []PinTry         `json:"pin_tries"`
}

// TrustRecord is the per-user aggregate: every device the user has ever
// registered, keyed by UDID. Version increments on every successful upsert
// and guards against concurrent lost updates.
type TrustRecord struct {
	UserID  string   `json:"user_id"`
	Devices []Device `json:"devices"`
	Version int64    `json:"version"`
}

// FindDevice returns a pointer into Devices for the given UDID, or nil when
// the user has no such device.
func (r *TrustRecord) FindDevice(udid string) *Device {
	for i := range r.Devices {
		if r.Devices[i].UDID == udid {
			return &r.Devices[i]
		}
	}
	return nil
}

// TrustRepository defines the storage contract for trust records.
//
// Upsert performs a compare-and-swap: it succeeds only when the stored
// version equals record.Version, and writes the record with Version+1.
// A record with Version 0 must not exist yet. On a version mismatch the
// repository returns ErrVersionConflict and the caller is expected to
// reload and reapply its mutation.
type TrustRepository interface {
	Get(ctx context.Context, userID string) (TrustRecord, error)
	Upsert(ctx context.Context, record TrustRecord) error
}
