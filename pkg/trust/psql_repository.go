package trust

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresTrustRepository implements TrustRepository using PostgreSQL.
// The device set is stored as a single JSONB document per user, matching the
// one-aggregate-per-user write pattern of the service layer.
//
// Schema:
//
//	CREATE TABLE device_trust (
//	    user_id TEXT PRIMARY KEY,
//	    devices JSONB NOT NULL,
//	    version BIGINT NOT NULL
//	);
type PostgresTrustRepository struct {
	db DBTX
}

// NewPostgresTrustRepository creates a new PostgreSQL trust repository
func NewPostgresTrustRepository(db DBTX) *PostgresTrustRepository {
	return &PostgresTrustRepository{db: db}
}

// Get retrieves the trust record for a user
func (r *PostgresTrustRepository) Get(ctx context.Context, userID string) (TrustRecord, error) {
	query := `
		SELECT devices, version
		FROM device_trust
		WHERE user_id = $1
	`

	var devicesJSON []byte
	var version int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&devicesJSON, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			slog.Debug("Trust record not found", "userID", userID)
			return TrustRecord{}, ErrRecordNotFound
		}
		return TrustRecord{}, fmt.Errorf("failed to get trust record: %w", err)
	}

	var devices []Device
	if err := json.Unmarshal(devicesJSON, &devices); err != nil {
		return TrustRecord{}, fmt.Errorf("failed to unmarshal device set: %w", err)
	}

	return TrustRecord{UserID: userID, Devices: devices, Version: version}, nil
}

// Upsert writes the full device set, guarded by the record version. A new
// record is inserted only when record.Version is 0; an existing record is
// overwritten only when its stored version still matches.
func (r *PostgresTrustRepository) Upsert(ctx context.Context, record TrustRecord) error {
	devicesJSON, err := json.Marshal(record.Devices)
	if err != nil {
		return fmt.Errorf("failed to marshal device set: %w", err)
	}

	if record.Version == 0 {
		query := `
			INSERT INTO device_trust (user_id, devices, version)
			VALUES ($1, $2, 1)
			ON CONFLICT (user_id) DO NOTHING
		`
		tag, err := r.db.Exec(ctx, query, record.UserID, devicesJSON)
		if err != nil {
			return fmt.Errorf("failed to insert trust record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionConflict
		}
		return nil
	}

	query := `
		UPDATE device_trust
		SET devices = $2, version = version + 1
		WHERE user_id = $1 AND version = $3
	`
	tag, err := r.db.Exec(ctx, query, record.UserID, devicesJSON, record.Version)
	if err != nil {
		return fmt.Errorf("failed to update trust record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		slog.Debug("Version conflict on upsert", "userID", record.UserID, "version", record.Version)
		return ErrVersionConflict
	}
	return nil
}
