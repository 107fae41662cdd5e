package browser

import (
	"errors"
	"fmt"
)

// ErrElementGone is returned when an element reference no longer resolves.
var ErrElementGone = errors.New("element no longer present")

// LaunchError represents a failure to create a browser context.
type LaunchError struct {
	Message string
	Cause   error
}

func (e *LaunchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("browser launch error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("browser launch error: %s", e.Message)
}

func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// ActionError represents a failed page interaction.
type ActionError struct {
	Action   string
	Selector string
	Cause    error
}

func (e *ActionError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("browser %s %q: %v", e.Action, e.Selector, e.Cause)
	}
	return fmt.Sprintf("browser %s: %v", e.Action, e.Cause)
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}
