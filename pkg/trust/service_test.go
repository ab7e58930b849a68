package trust

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestTrustService_CreateUser(t *testing.T) {
	repo := NewInMemTrustRepository()
	service := NewTrustService(repo)
	ctx := context.Background()

	err := service.CreateUser(ctx, "user-1", "udid-1", nil)
	require.NoError(t, err)

	record, err := service.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, record.Devices, 1)
	assert.Equal(t, "udid-1", record.Devices[0].UDID)
	assert.Equal(t, StatusTrusted, record.Devices[0].StatusInfo.Status)
	assert.Equal(t, "udid-1", record.Devices[0].StatusInfo.LicensorUDID)
	assert.Empty(t, record.Devices[0].PinTries)
}

func TestTrustService_CreateUser_WithInitialAttempt(t *testing.T) {
	repo := NewInMemTrustRepository()
	service := NewTrustService(repo)
	ctx := context.Background()

	err := service.CreateUser(ctx, "user-1", "udid-1", boolPtr(true))
	require.NoError(t, err)

	record, err := service.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, record.Devices[0].PinTries, 1)
	assert.True(t, record.Devices[0].PinTries[0].Blocked)
}

func TestTrustService_CreateUser_AlreadyExists(t *testing.T) {
	repo := NewInMemTrustRepository()
	service := NewTrustService(repo)
	ctx := context.Background()

	require.NoError(t, service.CreateUser(ctx, "user-1", "udid-1", nil))

	err := service.CreateUser(ctx, "user-1", "udid-2", nil)
	require.ErrorIs(t, err, ErrRecordExists)

	// The failed call must not have touched the record
	record, err := service.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, record.Devices, 1)
	assert.Equal(t, "udid-1", record.Devices[0].UDID)
}

func TestTrustService_AddDevice(t *testing.T) {
	repo := NewInMemTrustRepository()
	service := NewTrustService(repo)
	ctx := context.Background()

	require.NoError(t, service.CreateUser(ctx, "user-1", "udid-1", nil))
	require.NoError(t, service.AddDevice(ctx, "user-1", "udid-2", nil))

	record, err := service.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, record.Devices, 2)

	added := record.FindDevice("udid-2")
	require.NotNil(t, added)
	assert.Equal(t, StatusInProgress, added.StatusInfo.Status)
	assert.Empty(t, added.StatusInfo.LicensorUDID)
}

func TestTrustService_RecordAttempt_BoundedLedger(t *testing.T) {
	repo := NewInMemTrustRepository()
	service := NewTrustService(repo, WithMaxPinTries(3))
	ctx := context.Background()

	require.NoError(t, service.CreateUser(ctx, "user-1", "udid-1", nil))

	for i := 0; i < 3; i++ {
		require.NoError(t, service.RecordAttempt(ctx, "user-1", "udid-1", false))
	}

	record, err := service.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, record.Devices[0].PinTries, 3)

	// Ledger is full: the newest attempt overwrites the last slot
	require.NoError(t, service.RecordAttempt(ctx, "user-1", "udid-1", true))

	record, err = service.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	tries := record.Devices[0].PinTries
	require.Len(t, tries, 3)
	assert.True(t, tries[2].Blocked)
	assert.False(t, tries[0].Blocked)
	assert.False(t, tries[1].Blocked)
}

func TestTrustService_RecordAttempt_TruncatesAfterMaxDecrease(t *testing.T) {
	repo := NewInMemTrustRepository()
	ctx := context.Background()

	service := NewTrustService(repo, WithMaxPinTries(5))
	require.NoError(t, service.CreateUser(ctx, "user-1", "udid-1", nil))
	for i := 0; i < 5; i++ {
		require.NoError(t, service.RecordAttempt(ctx, "user-1", "udid-1", false))
	}

	// The retained-attempt limit was lowered between deployments
	service = NewTrustService(repo, WithMaxPinTries(2))
	require.NoError(t, service.RecordAttempt(ctx, "user-1", "udid-1", true))

	record, err := service.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	tries := record.Devices[0].PinTries
	require.Len(t, tries, 2)
	assert.True(t, tries[1].Blocked, "last entry must be the most recent attempt")
}

func TestTrustService_RecordAttempt_UnregisteredDevice(t *testing.T) {
	repo := NewInMemTrustRepository()
	service := NewTrustService(repo)
	ctx := context.Background()

	require.NoError(t, service.CreateUser(ctx, "user-1", "udid-1", nil))

	err := service.RecordAttempt(ctx, "user-1", "udid-unknown", true)
	require.ErrorIs(t, err, ErrUnregisteredDevice)

	// No mutation on failure
	record, err := service.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, record.Devices[0].PinTries)
}

func TestTrustService_RecordAttempt_UnknownUser(t *testing.T) {
	service := NewTrustService(NewInMemTrustRepository())

	err := service.RecordAttempt(context.Background(), "nobody", "udid-1", false)
	require.ErrorIs(t, err, ErrUnregisteredDevice)
}

func TestTrustService_SetDeviceStatus(t *testing.T) {
	repo := NewInMemTrustRepository()
	service := NewTrustService(repo)
	ctx := context.Background()

	require.NoError(t, service.CreateUser(ctx, "user-1", "udid-1", nil))
	require.NoError(t, service.AddDevice(ctx, "user-1", "udid-2", nil))

	// License the second device from the first
	require.NoError(t, service.SetDeviceStatus(ctx, "user-1", "udid-2", StatusTrusted, "udid-1"))

	record, err := service.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	device := record.FindDevice("udid-2")
	require.NotNil(t, device)
	assert.Equal(t, StatusTrusted, device.StatusInfo.Status)
	assert.Equal(t, "udid-1", device.StatusInfo.LicensorUDID)
}

func TestTrustService_SetDeviceStatus_IllegalTransition(t *testing.T) {
	repo := NewInMemTrustRepository()
	service := NewTrustService(repo)
	ctx := context.Background()

	require.NoError(t, service.CreateUser(ctx, "user-1", "udid-1", nil))

	// trusted -> inProgress is not in the transition table
	err := service.SetDeviceStatus(ctx, "user-1", "udid-1", StatusInProgress, "")
	var invalid ErrInvalidTransition
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusTrusted, invalid.From)
	assert.Equal(t, StatusInProgress, invalid.To)
}

func TestTrustService_SetDeviceStatus_DeletedReactivation(t *testing.T) {
	repo := NewInMemTrustRepository()
	service := NewTrustService(repo)
	ctx := context.Background()

	require.NoError(t, service.CreateUser(ctx, "user-1", "udid-1", nil))
	require.NoError(t, service.SetDeviceStatus(ctx, "user-1", "udid-1", StatusDeleted, ""))
	require.NoError(t, service.SetDeviceStatus(ctx, "user-1", "udid-1", StatusInProgress, ""))

	record, err := service.GetRecord(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, record.Devices[0].StatusInfo.Status)
}

// conflictingRepository fails the first upsert attempts with a version
// conflict to exercise the reload-and-reapply path.
type conflictingRepository struct {
	*InMemTrustRepository
	conflicts int
}

func (r *conflictingRepository) Upsert(ctx context.Context, record TrustRecord) error {
	if r.conflicts > 0 {
		r.conflicts--
		return ErrVersionConflict
	}
	return r.InMemTrustRepository.Upsert(ctx, record)
}

func TestTrustService_RecordAttempt_RetriesOnVersionConflict(t *testing.T) {
	inner := NewInMemTrustRepository()
	bootstrap := NewTrustService(inner)
	ctx := context.Background()
	require.NoError(t, bootstrap.CreateUser(ctx, "user-1", "udid-1", nil))

	repo := &conflictingRepository{InMemTrustRepository: inner, conflicts: 2}
	service := NewTrustService(repo, WithConflictRetries(3))

	require.NoError(t, service.RecordAttempt(ctx, "user-1", "udid-1", true))

	record, err := inner.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, record.Devices[0].PinTries, 1)
}

type recordingInvalidator struct {
	userIDs []string
}

func (i *recordingInvalidator) Invalidate(ctx context.Context, userID string) error {
	i.userIDs = append(i.userIDs, userID)
	return nil
}

func TestTrustService_RecordAttempt_InvalidatesAttemptCache(t *testing.T) {
	repo := NewInMemTrustRepository()
	invalidator := &recordingInvalidator{}
	service := NewTrustService(repo, WithAttemptCacheInvalidator(invalidator))
	ctx := context.Background()

	require.NoError(t, service.CreateUser(ctx, "user-1", "udid-1", nil))
	require.NoError(t, service.RecordAttempt(ctx, "user-1", "udid-1", false))

	assert.Equal(t, []string{"user-1"}, invalidator.userIDs)
}
