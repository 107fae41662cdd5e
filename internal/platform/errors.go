package platform

import (
	"errors"
	"fmt"
)

// ErrNotSubmitted is returned when an application flow ends without an
// unambiguous submit control.
var ErrNotSubmitted = errors.New("application not submitted")

// ErrNoQuickApply is returned when a listing has no quick-apply entry point.
var ErrNoQuickApply = errors.New("no quick-apply entry point")

// ErrAmbiguousSubmit is returned when more than one submit control is visible.
var ErrAmbiguousSubmit = errors.New("more than one submit control")

// DiscoveryError represents missing page structure: the expected listing
// containers were not found.
type DiscoveryError struct {
	Platform string
	URL      string
	Message  string
	Cause    error
}

func (e *DiscoveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s discovery error at %s: %s: %v", e.Platform, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s discovery error at %s: %s", e.Platform, e.URL, e.Message)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}

// ApplyError represents a failed application attempt for one listing.
type ApplyError struct {
	Listing string
	Step    string
	Cause   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply to %q failed at %s: %v", e.Listing, e.Step, e.Cause)
}

func (e *ApplyError) Unwrap() error {
	return e.Cause
}

// Reason is the human-readable failure shown to callers.
func (e *ApplyError) Reason() string {
	switch {
	case errors.Is(e.Cause, ErrNoQuickApply):
		return "No quick-apply option for this listing"
	case errors.Is(e.Cause, ErrAmbiguousSubmit):
		return "Application form is ambiguous, skipped"
	case errors.Is(e.Cause, ErrNotSubmitted):
		return "Multi-step application could not be completed, skipped"
	}
	return fmt.Sprintf("Application failed at %s", e.Step)
}
