// Package apperr defines the error taxonomy shared by the checkout core.
// Handlers map these onto HTTP status codes in exactly one place.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSignatureInvalid indicates a gateway callback failed HMAC verification.
	ErrSignatureInvalid = errors.New("invalid transaction signature")
)

// ConflictError indicates an operation that would violate a once-only
// guarantee: re-using a consumed cart, re-initiating a settled payment.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError creates a conflict error.
func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ValidationError indicates malformed or otherwise unacceptable input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NewValidationError creates a validation error for a named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GatewayProtocolError indicates a callback whose shape violates the
// gateway contract (e.g. a success callback without its data payload).
// Distinct from a legitimate decline, which is a FAILED outcome, not an error.
type GatewayProtocolError struct {
	Message string
}

func (e *GatewayProtocolError) Error() string {
	return e.Message
}

// NewGatewayProtocolError creates a gateway protocol error.
func NewGatewayProtocolError(format string, args ...interface{}) *GatewayProtocolError {
	return &GatewayProtocolError{Message: fmt.Sprintf(format, args...)}
}

// IsGatewayProtocol reports whether err is a GatewayProtocolError.
func IsGatewayProtocol(err error) bool {
	var ge *GatewayProtocolError
	return errors.As(err, &ge)
}
