package trust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultMaxPinTries caps the per-device attempt ledger
	DefaultMaxPinTries = 10

	// DefaultConflictRetries bounds reload-and-reapply attempts on a version conflict
	DefaultConflictRetries = 3
)

// AttemptCacheInvalidator drops the cached login-attempt list for a user
// after the underlying ledger changed. Implemented by the loginattempts
// cache; optional (nil disables invalidation).
type AttemptCacheInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// TrustService owns the device trust lifecycle: creating a user's first
// device, registering additional devices, recording PIN attempts and
// transitioning device status.
type TrustService struct {
	repository       TrustRepository
	maxPinTries      int
	conflictRetries  int
	cacheInvalidator AttemptCacheInvalidator
}

// TrustServiceOption configures a TrustService
type TrustServiceOption func(*TrustService)

// WithMaxPinTries sets the maximum number of retained PIN attempts per device
func WithMaxPinTries(n int) TrustServiceOption {
	return func(s *TrustService) {
		s.maxPinTries = n
	}
}

// WithConflictRetries sets how many times a mutation is reapplied after a version conflict
func WithConflictRetries(n int) TrustServiceOption {
	return func(s *TrustService) {
		s.conflictRetries = n
	}
}

// WithAttemptCacheInvalidator wires the login-attempt cache so that ledger
// writes invalidate the cached attempt list
func WithAttemptCacheInvalidator(inv AttemptCacheInvalidator) TrustServiceOption {
	return func(s *TrustService) {
		s.cacheInvalidator = inv
	}
}

// NewTrustService creates a new trust service with the given repository
func NewTrustService(repository TrustRepository, opts ...TrustServiceOption) *TrustService {
	service := &TrustService{
		repository:      repository,
		maxPinTries:     DefaultMaxPinTries,
		conflictRetries: DefaultConflictRetries,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// GetRecord returns the trust record for a user
func (s *TrustService) GetRecord(ctx context.Context, userID string) (TrustRecord, error) {
	return s.repository.Get(ctx, userID)
}

// CreateUser creates the trust record for a user's first device. The device
// starts out trusted and self-licensed. blocked, when non-nil, seeds the
// attempt ledger with one entry.
func (s *TrustService) CreateUser(ctx context.Context, userID, udid string, blocked *bool) error {
	_, err := s.repository.Get(ctx, userID)
	if err == nil {
		return fmt.Errorf("user %s: %w", userID, ErrRecordExists)
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return fmt.Errorf("failed to check trust record: %w", err)
	}

	now := time.Now().UTC()
	record := TrustRecord{
		UserID: userID,
		Devices: []Device{
			{
				UDID: udid,
				StatusInfo: DeviceStatusInfo{
					Status:       StatusTrusted,
					LicensorUDID: udid,
					UpdatedAt:    now,
				},
				PinTries: initialPinTries(blocked, now),
			},
		},
	}

	if err := s.repository.Upsert(ctx, record); err != nil {
		// A concurrent create raced us to the insert.
		if errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("user %s: %w", userID, ErrRecordExists)
		}
		return fmt.Errorf("failed to create trust record: %w", err)
	}

	slog.Info("Trust record created", "userID", userID, "udid", udid)
	return nil
}

// AddDevice appends a new in-progress device to an existing record. The
// caller must have already determined the UDID is not yet registered.
func (s *TrustService) AddDevice(ctx context.Context, userID, udid string, blocked *bool) error {
	err := s.mutate(ctx, userID, func(record *TrustRecord) error {
		now := time.Now().UTC()
		record.Devices = append(record.Devices, Device{
			UDID: udid,
			StatusInfo: DeviceStatusInfo{
				Status:    StatusInProgress,
				UpdatedAt: now,
			},
			PinTries: initialPinTries(blocked, now),
		})
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Device added", "userID", userID, "udid", udid)
	return nil
}

// RecordAttempt appends a PIN attempt outcome to the device's bounded
// ledger. When the ledger is full the newest attempt overwrites the last
// slot; when the configured maximum shrank since the last write, the ledger
// is truncated first. The last element always reflects the most recent call.
func (s *TrustService) RecordAttempt(ctx context.Context, userID, udid string, blocked bool) error {
	err := s.mutate(ctx, userID, func(record *TrustRecord) error {
		device := record.FindDevice(udid)
		if device == nil {
			return fmt.Errorf("user %s device %s: %w", userID, udid, ErrUnregisteredDevice)
		}

		try := PinTry{AttemptAt: time.Now().UTC(), Blocked: blocked}
		switch {
		case len(device.PinTries) < s.maxPinTries:
			device.PinTries = append(device.PinTries, try)
		case len(device.PinTries) > s.maxPinTries:
			device.PinTries = device.PinTries[:s.maxPinTries]
			device.PinTries[len(device.PinTries)-1] = try
		default:
			device.PinTries[len(device.PinTries)-1] = try
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateAttempts(ctx, userID)
	slog.Debug("PIN attempt recorded", "userID", userID, "udid", udid, "blocked", blocked)
	return nil
}

// SetDeviceStatus replaces the device's status info. The transition must be
// legal per the transition table; a same-status call is a no-op transition
// and always allowed.
func (s *TrustService) SetDeviceStatus(ctx context.Context, userID, udid string, status DeviceStatus, licensorUDID string) error {
	err := s.mutate(ctx, userID, func(record *TrustRecord) error {
		device := record.FindDevice(udid)
		if device == nil {
			return fmt.Errorf("user %s device %s: %w", userID, udid, ErrUnregisteredDevice)
		}
		if !CanTransition(device.StatusInfo.Status, status) {
			return ErrInvalidTransition{From: device.StatusInfo.Status, To: status}
		}
		device.StatusInfo = DeviceStatusInfo{
			Status:       status,
			LicensorUDID: licensorUDID,
			UpdatedAt:    time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateAttempts(ctx, userID)
	slog.Info("Device status updated", "userID", userID, "udid", udid, "status", status)
	return nil
}

// mutate loads the record, applies fn and writes it back, reloading and
// reapplying on a version conflict up to the configured retry bound.
func (s *TrustService) mutate(ctx context.Context, userID string, fn func(*TrustRecord) error) error {
	var err error
	for attempt := 0; attempt <= s.conflictRetries; attempt++ {
		var record TrustRecord
		record, err = s.repository.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return fmt.Errorf("user %s: %w", userID, ErrUnregisteredDevice)
			}
			return fmt.Errorf("failed to load trust record: %w", err)
		}

		if err = fn(&record); err != nil {
			return err
		}

		err = s.repository.Upsert(ctx, record)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("failed to persist trust record: %w", err)
		}
		slog.Debug("Version conflict, reapplying mutation", "userID", userID, "attempt", attempt+1)
	}
	return fmt.Errorf("failed to persist trust record after %d retries: %w", s.conflictRetries, err)
}

func (s *TrustService) invalidateAttempts(ctx context.Context, userID string) {
	if s.cacheInvalidator == nil {
		return
	}
	if err := s.cacheInvalidator.Invalidate(ctx, userID); err != nil {
		// Stale cache entries expire on their own TTL; a failed delete is
		// not worth failing the write for.
		slog.Warn("Failed to invalidate attempt cache", "userID", userID, "error", err)
	}
}

func initialPinTries(blocked *bool, now time.Time) []PinTry {
	if blocked == nil {
		return nil
	}
	return []PinTry{{AttemptAt: now, Blocked: *blocked}}
}
