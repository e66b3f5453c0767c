package core

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the session role may not perform an action.
	ErrForbidden = errors.New("not allowed")
	// ErrNotLoggedIn is returned when an operation needs an authenticated session.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrValidation is returned when local validation rejects input before any
	// request is sent.
	ErrValidation = errors.New("validation failed")
)

// HTTPError is the view core takes of a failed backend call. The
// integration package's API error satisfies it.
type HTTPError interface {
	error
	StatusCode() int
	// BodyMessage returns a structured message field from the response body
	// (message, error or title), or "".
	BodyMessage() string
	// RawBody returns the response body as text.
	RawBody() string
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return 0
}

// ValidationError carries the user-facing message of a local check.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError names the blocked action.
type ForbiddenError struct {
	Entity string
	Action Action
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("Not allowed: %s %s", e.Action, e.Entity)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }
