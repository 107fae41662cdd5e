package automation

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound is returned by Poll for an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

// ValidationError rejects a request before any task is created. Message is
// safe to show to the caller.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
