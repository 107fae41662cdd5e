package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/apply-autopilot/internal/types"
)

// -----------------------------------------------------------------------------
// Application History Methods
// -----------------------------------------------------------------------------

// RecordApplications appends a platform's application attempts for a task.
func (db *DB) RecordApplications(ctx context.Context, taskID, platform string, results []types.ApplicationResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, r := range results {
		_, err := tx.Exec(ctx,
			`INSERT INTO applications (id, task_id, platform, listing_id, title, organization,
			                           url, succeeded, reason, attempted_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.New(), taskID, platform, r.ListingID, r.Title, r.Organization,
			r.URL, r.Succeeded, r.Reason, r.AttemptedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record application for %s: %w", r.ListingID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit applications: %w", err)
	}
	return nil
}

// ListApplications returns a task's attempts in the order they were
// recorded; seq is the insertion order, so equal timestamps keep it.
func (db *DB) ListApplications(ctx context.Context, taskID string) ([]ApplicationRow, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, task_id, platform, listing_id, title, organization, url, succeeded, reason, attempted_at
		 FROM applications WHERE task_id = $1 ORDER BY seq`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	out := []ApplicationRow{}
	for rows.Next() {
		var a ApplicationRow
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Platform, &a.ListingID, &a.Title, &a.Organization,
			&a.URL, &a.Succeeded, &a.Reason, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
