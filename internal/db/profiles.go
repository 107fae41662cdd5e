package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/apply-autopilot/internal/types"
)

// GetApplicationProfile returns the applicant details stored for a user. A
// user without a profile gets an empty one.
func (db *DB) GetApplicationProfile(ctx context.Context, userID uuid.UUID) (types.Profile, error) {
	var raw []byte
	err := db.pool.QueryRow(ctx,
		`SELECT profile FROM application_profiles WHERE user_id = $1`,
		userID,
	).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return types.Profile{}, nil
		}
		return types.Profile{}, fmt.Errorf("failed to get application profile: %w", err)
	}

	var p types.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.Profile{}, fmt.Errorf("failed to decode application profile: %w", err)
	}
	return p, nil
}

// SaveApplicationProfile creates or replaces a user's profile.
func (db *DB) SaveApplicationProfile(ctx context.Context, userID uuid.UUID, p types.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal application profile: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO application_profiles (user_id, profile)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET profile = $2, updated_at = NOW()`,
		userID, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save application profile: %w", err)
	}
	return nil
}
