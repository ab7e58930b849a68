// Package loginattempts builds the merged, sorted, paginated view of a
// user's PIN attempts across all their devices.
//
// The read path merges two sources: the per-device attempt ledgers from the
// trust store and display metadata from the notification subsystem. The
// fully sorted list is cached per user with a TTL so repeated pages within
// the window cost one cache read.
package loginattempts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tendant/device-trust/pkg/notification"
	"github.com/tendant/device-trust/pkg/trust"
)

const (
	// DefaultPage is the page returned when the caller does not ask for one
	DefaultPage = 1

	// DefaultPageLimit is the number of attempts per page
	DefaultPageLimit = 20

	// DefaultCacheTTL bounds the staleness of the cached attempt list
	DefaultCacheTTL = 5 * time.Minute
)

// LoginAttempt is one attempt merged with the metadata of the device it came
// from. DeviceInfo is nil when the notification subsystem no longer knows
// the device.
type LoginAttempt struct {
	AttemptAt  time.Time                `json:"attempt_date"`
	DeviceInfo *notification.DeviceInfo `json:"device_info,omitempty"`
}

// Service answers attempt-history queries
type Service struct {
	repository trust.TrustRepository
	cache      AttemptCache
	notifier   notification.Client
	cacheTTL   time.Duration
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithCacheTTL sets the TTL for cached attempt lists
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

// NewService creates a new login-attempt query service
func NewService(repository trust.TrustRepository, cache AttemptCache, notifier notification.Client, opts ...ServiceOption) *Service {
	service := &Service{
		repository: repository,
		cache:      cache,
		notifier:   notifier,
		cacheTTL:   DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// GetAttempts returns one page of the user's attempt history, newest first.
// page is 1-indexed; limit must be positive. A registered user with no
// attempts gets an empty page; an unknown user gets ErrUnregisteredDevice.
func (s *Service) GetAttempts(ctx context.Context, userID string, page, limit int) ([]LoginAttempt, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1, got %d", page)
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be > 0, got %d", limit)
	}

	cached, hit, err := s.cache.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if hit {
		slog.Debug("Attempt list served from cache", "userID", userID, "page", page)
		return pageSlice(cached, page, limit), nil
	}

	record, err := s.repository.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, trust.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, trust.ErrUnregisteredDevice)
		}
		return nil, fmt.Errorf("failed to load trust record: %w", err)
	}

	triesByUDID := make(map[string][]trust.PinTry)
	udids := make([]string, 0, len(record.Devices))
	for _, device := range record.Devices {
		if len(device.PinTries) == 0 {
			continue
		}
		triesByUDID[device.UDID] = device.PinTries
		udids = append(udids, device.UDID)
	}
	if len(udids) == 0 {
		return []LoginAttempt{}, nil
	}

	deviceInfos, err := s.notifier.GetDeviceList(ctx, userID, udids)
	if err != nil {
		return nil, fmt.Errorf("failed to get device metadata: %w", err)
	}

	var attempts []LoginAttempt
	for _, udid := range udids {
		var info *notification.DeviceInfo
		if deviceInfo, known := deviceInfos[udid]; known {
			info = &deviceInfo
		}
		for _, try := range triesByUDID[udid] {
			attempts = append(attempts, LoginAttempt{AttemptAt: try.AttemptAt, DeviceInfo: info})
		}
	}

	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].AttemptAt.After(attempts[j].AttemptAt)
	})

	if err := s.cache.Set(ctx, userID, attempts, s.cacheTTL); err != nil {
		return nil, err
	}
	slog.Debug("Attempt list recomputed", "userID", userID, "attemptCount", len(attempts))

	return pageSlice(attempts, page, limit), nil
}

func pageSlice(attempts []LoginAttempt, page, limit int) []LoginAttempt {
	start := (page - 1) * limit
	if start >= len(attempts) {
		return []LoginAttempt{}
	}
	end := start + limit
	if end > len(attempts) {
		end = len(attempts)
	}
	return attempts[start:end]
}
