package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBaseline is returned when a trade is recorded before any starting equity exists.
	ErrNoBaseline = errors.New("no starting equity set")
	// ErrNotFound is returned when a trade is absent or owned by someone else.
	ErrNotFound = errors.New("trade not found")
	// ErrUnauthenticated is returned for calls without an owner.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
