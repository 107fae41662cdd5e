package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/apply-autopilot/internal/types"
)

// -----------------------------------------------------------------------------
// Listing Methods
// -----------------------------------------------------------------------------

const listingColumns = `id, platform, external_id, title, organization, location, compensation,
	duration, deadline, applicants, skills, category, source_url, extracted_at, created_at`

// SaveListings stores listings not seen before and returns how many were
// new. Duplicates within the batch and against stored rows are skipped.
func (db *DB) SaveListings(ctx context.Context, listings []types.Listing) (int, error) {
	fresh, err := db.unseen(ctx, dedupe(listings))
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stored := 0
	for _, l := range fresh {
		tag, err := tx.Exec(ctx,
			`INSERT INTO listings (id, platform, external_id, title, organization, location,
			                       compensation, duration, deadline, applicants, skills,
			                       category, source_url, extracted_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			 ON CONFLICT (platform, external_id) DO NOTHING`,
			uuid.New(), l.Platform, l.ExternalID, l.Title, l.Organization, l.Location,
			l.Compensation, l.Duration, l.Deadline, l.Applicants, StringArray(l.Skills),
			l.Category, l.SourceURL, l.ExtractedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert listing %s: %w", l.Key(), err)
		}
		stored += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit listings: %w", err)
	}
	return stored, nil
}

// unseen drops listings whose (platform, external id) is already stored.
func (db *DB) unseen(ctx context.Context, listings []types.Listing) ([]types.Listing, error) {
	byPlatform := make(map[string][]string)
	for _, l := range listings {
		byPlatform[l.Platform] = append(byPlatform[l.Platform], l.ExternalID)
	}

	existing := make(map[string]bool)
	for platform, ids := range byPlatform {
		rows, err := db.pool.Query(ctx,
			`SELECT external_id FROM listings WHERE platform = $1 AND external_id = ANY($2)`,
			platform, ids,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing listings: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan listing id: %w", err)
			}
			existing[platform+":"+id] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to check existing listings: %w", err)
		}
	}

	var out []types.Listing
	for _, l := range listings {
		if !existing[l.Key()] {
			out = append(out, l)
		}
	}
	return out, nil
}

// dedupe keeps the first listing per key.
func dedupe(listings []types.Listing) []types.Listing {
	seen := make(map[string]bool, len(listings))
	out := make([]types.Listing, 0, len(listings))
	for _, l := range listings {
		if l.ExternalID == "" || seen[l.Key()] {
			continue
		}
		seen[l.Key()] = true
		out = append(out, l)
	}
	return out
}

// GetListing retrieves a listing by its ID
func (db *DB) GetListing(ctx context.Context, id uuid.UUID) (*ListingRow, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// ListListings returns one page of listings matching f, newest first.
func (db *DB) ListListings(ctx context.Context, f ListingFilter) (*ListingPage, error) {
	f = f.normalize()
	where, args := f.where()

	var total int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	args = append(args, f.PerPage, f.offset())
	query := fmt.Sprintf(`SELECT %s FROM listings%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		listingColumns, where, len(args)-1, len(args))
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var out []ListingRow
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return newListingPage(out, total, f), nil
}

// where builds the WHERE clause for f.
func (f ListingFilter) where() (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.Platform != "" {
		add("platform = $%d", f.Platform)
	}
	if f.Organization != "" {
		add("organization ILIKE $%d", "%"+f.Organization+"%")
	}
	if f.Title != "" {
		add("title ILIKE $%d", "%"+f.Title+"%")
	}
	if f.Location != "" {
		add("location ILIKE $%d", "%"+f.Location+"%")
	}
	if f.Category != "" {
		add("category ILIKE $%d", "%"+f.Category+"%")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListingStats counts stored listings by platform and category, plus the
// organizations with the most listings.
func (db *DB) ListingStats(ctx context.Context) (*ListingStats, error) {
	stats := &ListingStats{}
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	var err error
	if stats.ByPlatform, err = db.counts(ctx,
		`SELECT platform, COUNT(*) FROM listings GROUP BY platform ORDER BY COUNT(*) DESC, platform`); err != nil {
		return nil, err
	}
	if stats.ByCategory, err = db.counts(ctx,
		`SELECT category, COUNT(*) FROM listings GROUP BY category ORDER BY COUNT(*) DESC, category`); err != nil {
		return nil, err
	}
	if stats.TopOrganizations, err = db.counts(ctx,
		`SELECT organization, COUNT(*) FROM listings GROUP BY organization ORDER BY COUNT(*) DESC, organization LIMIT $1`,
		TopOrganizationLimit); err != nil {
		return nil, err
	}
	return stats, nil
}

func (db *DB) counts(ctx context.Context, query string, args ...any) ([]Count, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate listings: %w", err)
	}
	defer rows.Close()

	out := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanListing(row pgx.Row) (*ListingRow, error) {
	var l ListingRow
	var skills StringArray
	err := row.Scan(&l.ID, &l.Platform, &l.ExternalID, &l.Title, &l.Organization, &l.Location,
		&l.Compensation, &l.Duration, &l.Deadline, &l.Applicants, &skills, &l.Category,
		&l.SourceURL, &l.ExtractedAt, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.Skills = skills
	return &l, nil
}
