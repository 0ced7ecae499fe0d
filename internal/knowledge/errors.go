package knowledge

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup by path misses.
var ErrNotFound = errors.New("file not found")

// ErrInvalidQuery is returned for empty or whitespace-only search queries.
var ErrInvalidQuery = errors.New("search query must not be empty")

// ValidationError reports a missing or malformed field on an incoming record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

func missingField(field string) error {
	return &ValidationError{Field: field, Reason: "required"}
}
