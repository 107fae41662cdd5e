package session

import (
	"errors"
	"fmt"
)

// ErrLoginTimeout is returned when a delegated login is not completed in time.
var ErrLoginTimeout = errors.New("session: delegated login timed out")

// AuthError represents a failed authentication attempt.
type AuthError struct {
	Platform string
	Message  string
	Cause    error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s login failed: %s: %v", e.Platform, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s login failed: %s", e.Platform, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// StoreError represents a failure reading or writing persisted sessions.
type StoreError struct {
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session store error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("session store error: %s", e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
