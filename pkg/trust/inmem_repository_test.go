package trust

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemTrustRepository_GetNotFound(t *testing.T) {
	repo := NewInMemTrustRepository()

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestInMemTrustRepository_UpsertAndGet(t *testing.T) {
	repo := NewInMemTrustRepository()
	ctx := context.Background()

	record := TrustRecord{
		UserID: "user-1",
		Devices: []Device{
			{
				UDID: "udid-1",
				StatusInfo: DeviceStatusInfo{
					Status:       StatusTrusted,
					LicensorUDID: "udid-1",
					UpdatedAt:    time.Now().UTC(),
				},
			},
		},
	}
	require.NoError(t, repo.Upsert(ctx, record))

	stored, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	require.Len(t, stored.Devices, 1)
	assert.Equal(t, "udid-1", stored.Devices[0].UDID)
}

func TestInMemTrustRepository_VersionConflict(t *testing.T) {
	repo := NewInMemTrustRepository()
	ctx := context.Background()

	record := TrustRecord{UserID: "user-1"}
	require.NoError(t, repo.Upsert(ctx, record))

	// Writing with a stale version must fail
	err := repo.Upsert(ctx, TrustRecord{UserID: "user-1", Version: 0})
	require.ErrorIs(t, err, ErrVersionConflict)

	// Writing with the current version succeeds and bumps it
	current, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, current))

	stored, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
}

func TestInMemTrustRepository_CreateRequiresVersionZero(t *testing.T) {
	repo := NewInMemTrustRepository()

	err := repo.Upsert(context.Background(), TrustRecord{UserID: "user-1", Version: 7})
	require.ErrorIs(t, err, ErrVersionConflict)
}

func TestInMemTrustRepository_ReturnsIsolatedCopies(t *testing.T) {
	repo := NewInMemTrustRepository()
	ctx := context.Background()

	record := TrustRecord{
		UserID: "user-1",
		Devices: []Device{
			{UDID: "udid-1", PinTries: []PinTry{{AttemptAt: time.Now().UTC()}}},
		},
	}
	require.NoError(t, repo.Upsert(ctx, record))

	loaded, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	loaded.Devices[0].PinTries[0].Blocked = true
	loaded.Devices[0].UDID = "mutated"

	fresh, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "udid-1", fresh.Devices[0].UDID)
	assert.False(t, fresh.Devices[0].PinTries[0].Blocked)
}
