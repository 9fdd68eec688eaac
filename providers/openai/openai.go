// Package openai provides the OpenAI completion adapter. It serves as the
// reference implementation for other provider adapters.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/emberfit/coach/internal/httputil"
	"github.com/emberfit/coach/pkg/errors"
	"github.com/emberfit/coach/pkg/provider"
	"github.com/emberfit/coach/pkg/types"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "openai"

	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when a request does not name one.
	DefaultModel = "gpt-4o-mini"
)

// Provider implements the OpenAI API adapter.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	headers map[string]string
}

// New creates a new OpenAI provider with the given options.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig creates a provider from a Config struct.
func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	p := New(
		WithAPIKey(cfg.APIKey),
		WithBaseURL(cfg.BaseURL),
		WithModel(cfg.Model),
	)
	for k, v := range cfg.Headers {
		p.headers[k] = v
	}
	return p, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// Model returns the default model for this provider.
func (p *Provider) Model() string {
	return p.model
}

// BuildRequest creates an HTTP request for the OpenAI API.
func (p *Provider) BuildRequest(ctx context.Context, req *types.CompletionRequest) (*http.Request, error) {
	if req.Model == "" {
		req.Model = p.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// ParseResponse transforms an OpenAI response into the unified format.
func (p *Provider) ParseResponse(resp *http.Response) (*types.CompletionResponse, error) {
	body, err := httputil.ReadLimitedBody(resp.Body, httputil.DefaultMaxResponseBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var completion types.CompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &completion, nil
}

// ParseStreamChunk parses a single SSE chunk from OpenAI.
func (p *Provider) ParseStreamChunk(data []byte) (*types.StreamChunk, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[DONE]")) {
		return nil, nil
	}

	if bytes.HasPrefix(trimmed, []byte("data: ")) {
		trimmed = bytes.TrimPrefix(trimmed, []byte("data: "))
	}

	if bytes.Equal(trimmed, []byte("[DONE]")) {
		return nil, nil
	}

	var chunk types.StreamChunk
	if err := json.Unmarshal(trimmed, &chunk); err != nil {
		return nil, fmt.Errorf("unmarshal chunk: %w", err)
	}

	return &chunk, nil
}

// MapError converts an OpenAI error response to a standardized error.
func (p *Provider) MapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return errors.NewAuthenticationError(ProviderName, message)
	case http.StatusTooManyRequests:
		return errors.NewRateLimitError(ProviderName, message)
	case http.StatusBadRequest:
		return errors.NewInvalidRequestError(ProviderName, message)
	case http.StatusNotFound:
		return errors.NewNotFoundError(ProviderName, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.NewTimeoutError(ProviderName, message)
	}

	// Any other 5xx is a transient upstream failure: retryable, and
	// eligible for fallback content once retries are exhausted.
	if statusCode >= 500 {
		return errors.NewServiceUnavailableError(ProviderName, message)
	}
	return errors.NewInternalError(ProviderName, message)
}
