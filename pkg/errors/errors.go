// Package errors defines unified error types for coaching orchestration.
// Provider failures, session lookups, and input validation all map to the
// same error shape so callers can branch on type and retryability.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// CoachError is the standardized error for orchestration operations.
// It carries enough information for error handling, logging, and the
// orchestrator's retry/fallback decision.
type CoachError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Provider   string `json:"provider,omitempty"`
	Retryable  bool   `json:"-"`
}

// Error implements the error interface.
func (e *CoachError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s (provider=%s, code=%d)",
			e.Type, e.Message, e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *CoachError) HTTPStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// Common error types as constants for consistency.
const (
	TypeAuthentication     = "authentication_error"
	TypeRateLimit          = "rate_limit_error"
	TypeInvalidRequest     = "invalid_request_error"
	TypeNotFound           = "not_found_error"
	TypeSessionNotFound    = "session_not_found"
	TypeValidation         = "validation_error"
	TypeTimeout            = "timeout_error"
	TypeServiceUnavailable = "service_unavailable_error"
	TypeInternalError      = "internal_error"
)

// NewAuthenticationError creates an authentication error (401).
// Never retried and never substituted with fallback content.
func NewAuthenticationError(provider, message string) *CoachError {
	return &CoachError{
		StatusCode: http.StatusUnauthorized,
		Message:    message,
		Type:       TypeAuthentication,
		Provider:   provider,
		Retryable:  false,
	}
}

// NewRateLimitError creates a rate limit error (429).
func NewRateLimitError(provider, message string) *CoachError {
	return &CoachError{
		StatusCode: http.StatusTooManyRequests,
		Message:    message,
		Type:       TypeRateLimit,
		Provider:   provider,
		Retryable:  true,
	}
}

// NewInvalidRequestError creates an invalid request error (400).
func NewInvalidRequestError(provider, message string) *CoachError {
	return &CoachError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Type:       TypeInvalidRequest,
		Provider:   provider,
		Retryable:  false,
	}
}

// NewNotFoundError creates a not found error (404).
func NewNotFoundError(provider, message string) *CoachError {
	return &CoachError{
		StatusCode: http.StatusNotFound,
		Message:    message,
		Type:       TypeNotFound,
		Provider:   provider,
		Retryable:  false,
	}
}

// NewSessionNotFoundError signals a mutator was called on an unknown or
// expired session. Recoverable: the caller re-creates via GetOrCreate.
func NewSessionNotFoundError(sessionID string) *CoachError {
	return &CoachError{
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("session not found: %s", sessionID),
		Type:       TypeSessionNotFound,
		Retryable:  false,
	}
}

// NewValidationError rejects malformed input at the boundary.
func NewValidationError(message string) *CoachError {
	return &CoachError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Type:       TypeValidation,
		Retryable:  false,
	}
}

// NewTimeoutError creates a timeout error (408).
func NewTimeoutError(provider, message string) *CoachError {
	return &CoachError{
		StatusCode: http.StatusRequestTimeout,
		Message:    message,
		Type:       TypeTimeout,
		Provider:   provider,
		Retryable:  true,
	}
}

// NewServiceUnavailableError creates a service unavailable error (503).
func NewServiceUnavailableError(provider, message string) *CoachError {
	return &CoachError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    message,
		Type:       TypeServiceUnavailable,
		Provider:   provider,
		Retryable:  true,
	}
}

// NewInternalError creates an internal server error (500).
func NewInternalError(provider, message string) *CoachError {
	return &CoachError{
		StatusCode: http.StatusInternalServerError,
		Message:    message,
		Type:       TypeInternalError,
		Provider:   provider,
		Retryable:  false,
	}
}

// IsRetryable reports whether the error may succeed on retry.
// Unknown error types (plain network errors and such) are treated as
// transient.
func IsRetryable(err error) bool {
	var ce *CoachError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return true
}

// IsSessionNotFound reports whether err is a session lookup failure.
func IsSessionNotFound(err error) bool {
	var ce *CoachError
	return errors.As(err, &ce) && ce.Type == TypeSessionNotFound
}
