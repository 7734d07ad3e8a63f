package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredField indicates a required environment variable is unset.
	ErrMissingRequiredField = errors.New("missing required configuration value")

	// ErrInvalidValue indicates an environment variable has a value that
	// fails validation (wrong type, out of range, unknown enum member).
	ErrInvalidValue = errors.New("invalid configuration value")
)

// ValidationError wraps a single configuration field failure with enough
// context to point the operator at the offending environment variable.
type ValidationError struct {
	Field string // environment variable name
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newFieldError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}
