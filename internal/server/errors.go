package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/apply-autopilot/internal/automation"
	"github.com/jonathan/apply-autopilot/internal/schemas"
)

// ErrBadRequest indicates a request body or parameter that could not be read.
type ErrBadRequest struct {
	Message string
	Cause   error
}

func (e *ErrBadRequest) Error() string {
	return e.Message
}

func (e *ErrBadRequest) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var (
		ve  *automation.ValidationError
		se  *schemas.ValidationError
		bad *ErrBadRequest
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &se), errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, automation.ErrTaskNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the client-facing text for err. Internal errors are not
// echoed back.
func errorMessage(err error) string {
	var se *schemas.ValidationError
	if errors.As(err, &se) {
		return se.First()
	}
	switch HTTPStatus(err) {
	case http.StatusBadRequest, http.StatusNotFound:
		return err.Error()
	default:
		return "Internal server error"
	}
}
