package model

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to the language model as structured tool results.
var (
	ErrInvalidFormat       = errors.New("invalid format")
	ErrNotIdentified       = errors.New("not identified")
	ErrSlotUnavailable     = errors.New("slot unavailable")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrAlreadyClosed       = errors.New("session already closed")
)

// Wire names for the error kinds.
const (
	KindInvalidFormat       = "invalid_format"
	KindNotIdentified       = "not_identified"
	KindSlotUnavailable     = "slot_unavailable"
	KindNotFound            = "not_found"
	KindUpstreamUnavailable = "upstream_unavailable"
	KindAlreadyClosed       = "already_closed"
)

// ValidationError represents a malformed caller-supplied value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidFormat) match validation errors.
func (e ValidationError) Unwrap() error { return ErrInvalidFormat }

// NewValidationError creates a new validation error
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error (including wrapped errors)
func IsValidationError(err error) bool {
	var validationErr ValidationError
	return errors.As(err, &validationErr)
}

// KindOf maps an error to its wire kind. Unknown errors are reported as
// upstream failures so a caller never hears that an operation succeeded
// when it did not.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidFormat):
		return KindInvalidFormat
	case errors.Is(err, ErrNotIdentified):
		return KindNotIdentified
	case errors.Is(err, ErrSlotUnavailable):
		return KindSlotUnavailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyClosed):
		return KindAlreadyClosed
	default:
		return KindUpstreamUnavailable
	}
}

// IsDomainError reports whether err is one of the caller-correctable kinds
// (as opposed to an infrastructure failure).
func IsDomainError(err error) bool {
	return errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrNotIdentified) ||
		errors.Is(err, ErrSlotUnavailable) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyClosed)
}
