package trust

import (
	"context"
	"log/slog"
	"sync"
)

// InMemTrustRepository implements TrustRepository using an in-memory map
type InMemTrustRepository struct {
	records map[string]TrustRecord
	mu      sync.Mutex
}

// NewInMemTrustRepository creates a new in-memory trust repository
func NewInMemTrustRepository() *InMemTrustRepository {
	return &InMemTrustRepository{
		records: make(map[string]TrustRecord),
	}
}

// Get retrieves the trust record for a user
func (r *InMemTrustRepository) Get(ctx context.Context, userID string) (TrustRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[userID]
	if !exists {
		slog.Debug("Trust record not found", "userID", userID)
		return TrustRecord{}, ErrRecordNotFound
	}
	return cloneRecord(record), nil
}

// Upsert writes the full record back, guarded by the record version
func (r *InMemTrustRepository) Upsert(ctx context.Context, record TrustRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.records[record.UserID]
	if exists && stored.Version != record.Version {
		slog.Debug("Version conflict on upsert",
			"userID", record.UserID, "storedVersion", stored.Version, "recordVersion", record.Version)
		return ErrVersionConflict
	}
	if !exists && record.Version != 0 {
		return ErrVersionConflict
	}

	record.Version++
	r.records[record.UserID] = cloneRecord(record)
	slog.Debug("Trust record upserted",
		"userID", record.UserID, "deviceCount", len(record.Devices), "version", record.Version)
	return nil
}

// cloneRecord deep-copies a record so callers cannot mutate stored state
// through shared slices.
func cloneRecord(record TrustRecord) TrustRecord {
	devices := make([]Device, len(record.Devices))
	for i, device := range record.Devices {
		device.PinTries = append([]PinTry(nil), device.PinTries...)
		devices[i] = device
	}
	record.Devices = devices
	return record
}
