package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/apply-autopilot/internal/types"
)

// ListingRow is a stored listing.
type ListingRow struct {
	ID uuid.UUID `json:"id"`
	types.Listing
	CreatedAt time.Time `json:"created_at"`
}

// ApplicationRow is one stored application attempt.
type ApplicationRow struct {
	ID       uuid.UUID `json:"id"`
	TaskID   string    `json:"task_id"`
	Platform string    `json:"platform"`
	types.ApplicationResult
}

// ListingFilter narrows ListListings. Text fields match case-insensitive
// substrings except Platform, which must match exactly.
type ListingFilter struct {
	Platform     string
	Organization string
	Title        string
	Location     string
	Category     string
	Page         int
	PerPage      int
}

// Pagination defaults for ListListings.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// normalize clamps paging to sane values.
func (f ListingFilter) normalize() ListingFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	return f
}

func (f ListingFilter) offset() int {
	return (f.Page - 1) * f.PerPage
}

// ListingPage is one page of ListListings.
type ListingPage struct {
	Listings   []ListingRow `json:"listings"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalPages int          `json:"total_pages"`
}

func newListingPage(rows []ListingRow, total int, f ListingFilter) *ListingPage {
	if rows == nil {
		rows = []ListingRow{}
	}
	return &ListingPage{
		Listings:   rows,
		Total:      total,
		Page:       f.Page,
		PerPage:    f.PerPage,
		TotalPages: (total + f.PerPage - 1) / f.PerPage,
	}
}

// Count is a grouped count.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ListingStats summarizes stored listings.
type ListingStats struct {
	Total            int     `json:"total"`
	ByPlatform       []Count `json:"by_platform"`
	ByCategory       []Count `json:"by_category"`
	TopOrganizations []Count `json:"top_organizations"`
}

// TopOrganizationLimit caps ListingStats.TopOrganizations.
const TopOrganizationLimit = 10

// StringArray handles JSONB string arrays
type StringArray []string

// Scan implements the Scanner interface for StringArray
func (a *StringArray) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = []string{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return fmt.Errorf("unsupported StringArray source %T", src)
}

// Value implements the Valuer interface for StringArray
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}
