// Package trust tracks the trust state of a user's devices and keeps a
// bounded ledger of PIN attempts per device.
//
// Each user owns a single TrustRecord aggregate holding every device they
// ever registered. A device moves through the statuses trusted, untrusted,
// inProgress and deleted; legal transitions are enforced by the service
// through an explicit transition table. Every device carries a capped list
// of recent PIN attempt outcomes where the last element is always the most
// recent attempt.
//
// # Basic Usage
//
//	repo := trust.NewInMemTrustRepository()
//	service := trust.NewTrustService(repo, trust.WithMaxPinTries(10))
//
//	// First device for a user: trusted and self-licensed
//	err := service.CreateUser(ctx, userID, udid, nil)
//
//	// Record a PIN attempt outcome
//	err = service.RecordAttempt(ctx, userID, udid, false)
//
//	// License a second device from the first
//	err = service.SetDeviceStatus(ctx, userID, newUDID, trust.StatusTrusted, udid)
//
// Records are persisted whole with a compare-and-swap on a per-record
// version; the service reloads and reapplies mutations on conflict, so
// concurrent writers for the same user never silently lose updates.
//
// # Related Packages
//
//   - pkg/registration - device registration workflow on top of the lifecycle
//   - pkg/loginattempts - merged, cached, paginated attempt history
package trust
