package platform

import (
	"time"

	"github.com/jonathan/apply-autopilot/internal/extract"
	"github.com/jonathan/apply-autopilot/internal/session"
)

// DefaultPerPage caps how many cards are read from one results page.
const DefaultPerPage = 25

// DefaultMaxSkills caps the skills kept per listing.
const DefaultMaxSkills = 5

// Site is a declarative description of one platform. A Bot drives any Site.
type Site struct {
	Name    string
	BaseURL string

	// Auth configures login. Timing is filled from the site when empty.
	Auth session.Config

	// SearchURL builds the results URL for keywords and a 1-based page number.
	SearchURL func(keywords string, page int) string

	// Containers are structural signals that a results list rendered,
	// tried in order.
	Containers []string
	// Cards locate listing cards; the first selector with matches wins.
	Cards   []string
	PerPage int

	Fields Fields
	Apply  ApplyFlow

	// NextPage, when set, is clicked to paginate. Otherwise the page-numbered
	// SearchURL is loaded.
	NextPage extract.ControlSpec

	Timing Timing
}

// Fields holds one strategy chain per listing field.
type Fields struct {
	ID           extract.Chain
	Title        extract.Chain
	Organization extract.Chain
	Location     extract.Chain
	Compensation extract.Chain
	Duration     extract.Chain
	Deadline     extract.Chain
	Applicants   extract.Chain
	URL          extract.Chain
	Skills       extract.ListChain

	DefaultLocation     string
	DefaultCompensation string
}

// ApplyFlow names the controls of the site's application workflow.
type ApplyFlow struct {
	// Entry is the quick-apply control revealed after opening a card.
	// Empty means opening the card is the entry point.
	Entry   extract.ControlSpec
	Submit  extract.ControlSpec
	Next    extract.ControlSpec
	Dismiss extract.ControlSpec
	// Discard confirms abandoning a half-filled form.
	Discard extract.ControlSpec
	Form    FormFields
}

// FormFields locate inputs filled from the applicant profile.
type FormFields struct {
	Phone []string
	Text  []string
}

// Timing holds page-settle and discovery waits.
type Timing struct {
	Settle        time.Duration
	ActionSettle  time.Duration
	ContainerWait time.Duration
	Poll          time.Duration
}

// DefaultSiteTiming matches the pauses real listing pages need to render.
func DefaultSiteTiming() Timing {
	return Timing{
		Settle:        5 * time.Second,
		ActionSettle:  2 * time.Second,
		ContainerWait: 10 * time.Second,
		Poll:          500 * time.Millisecond,
	}
}
