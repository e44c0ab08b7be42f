// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUser     = errors.New("duplicate user")
	ErrValidation        = errors.New("validation failed")
	ErrStorageCorruption = errors.New("storage corrupted")

	// Extraction errors. These never escape the gateway; they tag log lines.
	ErrExtractionInconclusive = errors.New("extraction inconclusive")
	ErrRemoteUnavailable      = errors.New("remote model unavailable")

	// Intake errors.
	ErrNoPreview      = errors.New("no preview to act on")
	ErrPreviewPending = errors.New("a preview is already pending")
	ErrPipelineClosed = errors.New("intake pipeline closed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError describes a rejected field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// UserError carries a message meant for the terminal. main prints only
// UserMessage; the wrapped cause goes to the debug log.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return e.UserMessage + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error { return e.Err }

func NewUserError(msg string, cause error) error {
	return &UserError{UserMessage: msg, Err: cause}
}
