package permit

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("permit not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid permit state")
)

// ValidationError reports malformed input. It is never retried by the core;
// the caller fixes the input and resubmits.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StateError reports an operation attempted while the permit is not in a
// state that permits it, including lost transition races. It always carries
// the current status so callers can explain the failure without re-fetching.
type StateError struct {
	Op      string
	Current Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: permit is %s", e.Op, e.Current)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }
