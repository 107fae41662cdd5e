// Package types provides the records shared across the automation system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/jonathan/apply-autopilot/internal/browser"
)

// Listing is a single job or internship posting scraped from a platform.
type Listing struct {
	Platform     string    `json:"platform"`
	ExternalID   string    `json:"external_id"`
	Title        string    `json:"title"`
	Organization string    `json:"organization"`
	Location     string    `json:"location"`
	Compensation string    `json:"compensation"`
	Duration     string    `json:"duration,omitempty"`
	Deadline     string    `json:"deadline,omitempty"`
	Applicants   string    `json:"applicants,omitempty"`
	Skills       []string  `json:"skills"`
	Category     string    `json:"category,omitempty"`
	SourceURL    string    `json:"source_url,omitempty"`
	ExtractedAt  time.Time `json:"extracted_at"`

	// Handle addresses the listing's card on the page it was collected from.
	Handle browser.Element `json:"-"`
}

// Key is the deduplication key: platform plus external id.
func (l Listing) Key() string {
	return l.Platform + ":" + l.ExternalID
}
