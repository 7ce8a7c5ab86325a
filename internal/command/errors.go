package command

import (
	"errors"
	"fmt"
)

// Domain errors for the command package.
var (
	// ErrInvalidIntent is returned when an intent fails validation.
	// Every *ValidationError wraps it.
	ErrInvalidIntent = errors.New("command: invalid intent")

	// ErrUnknownModel is returned for a model tag outside the supported set.
	// Reaching Encode with one is a programming error, not bad user input.
	ErrUnknownModel = errors.New("command: unknown device model")
)

// ValidationError describes why an intent was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidIntent.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidIntent
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
