package types

import "time"

// ApplicationResult records one application attempt against a listing.
type ApplicationResult struct {
	ListingID    string    `json:"listing_id"`
	Title        string    `json:"title"`
	Organization string    `json:"organization"`
	URL          string    `json:"url,omitempty"`
	Succeeded    bool      `json:"succeeded"`
	Reason       string    `json:"reason,omitempty"`
	AttemptedAt  time.Time `json:"attempted_at"`
}
