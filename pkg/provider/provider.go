// Package provider defines the public interfaces for the orchestration
// layer's external collaborators: the LLM completion API, the canned
// response-template source, and the health-metrics source.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/emberfit/coach/pkg/types"
)

// Provider defines the interface that completion API adapters implement.
// It handles the complete lifecycle of a completion request: building,
// parsing, and error mapping.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// BuildRequest transforms a unified CompletionRequest into a
	// provider-specific HTTP request. It handles parameter mapping,
	// header setup, and body serialization.
	BuildRequest(ctx context.Context, req *types.CompletionRequest) (*http.Request, error)

	// ParseResponse transforms a provider response into the unified format.
	ParseResponse(resp *http.Response) (*types.CompletionResponse, error)

	// ParseStreamChunk parses a single SSE chunk from a streaming response.
	// Returns nil, nil for keep-alive or non-content events.
	ParseStreamChunk(data []byte) (*types.StreamChunk, error)

	// MapError converts a provider error response into a standardized
	// CoachError carrying the retryability decision.
	MapError(statusCode int, body []byte) error
}

// Config contains provider-specific configuration.
type Config struct {
	Name    string
	Type    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Headers map[string]string
}

// Factory creates provider instances from configuration.
type Factory func(cfg Config) (Provider, error)
