package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoachError_Error(t *testing.T) {
	err := NewAuthenticationError("openai", "invalid api key")
	assert.Contains(t, err.Error(), "authentication_error")
	assert.Contains(t, err.Error(), "provider=openai")
	assert.Contains(t, err.Error(), "401")
}

func TestCoachError_Retryable(t *testing.T) {
	tests := []struct {
		name      string
		err       *CoachError
		retryable bool
	}{
		{"authentication", NewAuthenticationError("p", "m"), false},
		{"rate limit", NewRateLimitError("p", "m"), true},
		{"invalid request", NewInvalidRequestError("p", "m"), false},
		{"timeout", NewTimeoutError("p", "m"), true},
		{"service unavailable", NewServiceUnavailableError("p", "m"), true},
		{"internal", NewInternalError("p", "m"), false},
		{"validation", NewValidationError("m"), false},
		{"session not found", NewSessionNotFoundError("s1"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryable_UnknownError(t *testing.T) {
	// Plain network errors are treated as transient.
	assert.True(t, IsRetryable(fmt.Errorf("connection reset")))
}

func TestIsSessionNotFound(t *testing.T) {
	assert.True(t, IsSessionNotFound(NewSessionNotFoundError("s1")))
	assert.False(t, IsSessionNotFound(NewNotFoundError("p", "model missing")))

	wrapped := fmt.Errorf("append turn: %w", NewSessionNotFoundError("s2"))
	assert.True(t, IsSessionNotFound(wrapped))
}

func TestHTTPStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, NewAuthenticationError("p", "m").HTTPStatusCode())

	e := &CoachError{Type: TypeInternalError, Message: "boom"}
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatusCode())
}
