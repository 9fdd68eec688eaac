// Package anthropic provides the Anthropic Claude completion adapter. It
// handles request/response transformation between the unified completion
// format and Anthropic's Messages API.
package anthropic

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
	ProviderName = "anthropic"

	// DefaultBaseURL is the default Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultAPIVersion is the default Anthropic API version.
	DefaultAPIVersion = "2023-06-01"

	// DefaultModel is used when a request does not name one.
	DefaultModel = "claude-3-5-haiku-20241022"

	// DefaultMaxTokens is the default max tokens for Anthropic models.
	DefaultMaxTokens = 4096
)

// Provider implements the Anthropic Claude API adapter.
type Provider struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	headers    map[string]string
}

// New creates a new Anthropic provider with the given options.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    DefaultBaseURL,
		apiVersion: DefaultAPIVersion,
		model:      DefaultModel,
		headers:    make(map[string]string),
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

// anthropicRequest represents the Anthropic Messages API request format.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
	Metadata    *metadata          `json:"metadata,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type metadata struct {
	UserID string `json:"user_id,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// anthropicResponse represents the Anthropic Messages API response format.
type anthropicResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      anthropicUsage `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// BuildRequest creates an HTTP request for the Anthropic API.
func (p *Provider) BuildRequest(ctx context.Context, req *types.CompletionRequest) (*http.Request, error) {
	anthropicReq := p.transformRequest(req)

	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.baseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", p.apiVersion)

	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

func (p *Provider) transformRequest(req *types.CompletionRequest) *anthropicRequest {
	anthropicReq := &anthropicRequest{
		Model:     req.Model,
		MaxTokens: DefaultMaxTokens,
		Stream:    req.Stream,
	}

	if anthropicReq.Model == "" {
		anthropicReq.Model = p.model
	}
	if req.MaxTokens > 0 {
		anthropicReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		anthropicReq.Temperature = req.Temperature
	}
	if req.User != "" {
		anthropicReq.Metadata = &metadata{UserID: req.User}
	}

	// System messages move to the dedicated field; Anthropic rejects them
	// inside the message list.
	var system strings.Builder
	for _, msg := range req.Messages {
		if msg.Role == types.RoleSystem {
			system.WriteString(msg.Content)
			continue
		}
		anthropicReq.Messages = append(anthropicReq.Messages, anthropicMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	anthropicReq.System = system.String()

	return anthropicReq
}

// ParseResponse transforms an Anthropic response into the unified format.
func (p *Provider) ParseResponse(resp *http.Response) (*types.CompletionResponse, error) {
	body, err := httputil.ReadLimitedBody(resp.Body, httputil.DefaultMaxResponseBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	var text strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &types.CompletionResponse{
		ID:     anthropicResp.ID,
		Object: "chat.completion",
		Model:  anthropicResp.Model,
		Choices: []types.CompletionChoice{{
			Index: 0,
			Message: types.Message{
				Role:    types.RoleAssistant,
				Content: text.String(),
			},
			FinishReason: mapStopReason(anthropicResp.StopReason),
		}},
		Usage: &types.Usage{
			PromptTokens:     anthropicResp.Usage.InputTokens,
			CompletionTokens: anthropicResp.Usage.OutputTokens,
			TotalTokens:      anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
		},
	}, nil
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}

// ParseStreamChunk parses a single SSE chunk from Anthropic.
func (p *Provider) ParseStreamChunk(data []byte) (*types.StreamChunk, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if bytes.HasPrefix(trimmed, []byte("event:")) {
		return nil, nil
	}

	if bytes.HasPrefix(trimmed, []byte("data: ")) {
		trimmed = bytes.TrimPrefix(trimmed, []byte("data: "))
	}

	if bytes.Equal(trimmed, []byte("[DONE]")) {
		return nil, nil
	}

	var event map[string]any
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, nil
	}

	eventType, ok := event["type"].(string)
	if !ok {
		return nil, nil
	}

	switch eventType {
	case "content_block_delta":
		delta, ok := event["delta"].(map[string]any)
		if !ok {
			return nil, nil
		}
		if delta["type"] == "text_delta" {
			text, ok := delta["text"].(string)
			if !ok {
				return nil, nil
			}
			return &types.StreamChunk{
				Object: "chat.completion.chunk",
				Choices: []types.StreamChoice{{
					Index: 0,
					Delta: types.StreamDelta{Content: text},
				}},
			}, nil
		}

	case "message_start":
		msg, ok := event["message"].(map[string]any)
		if !ok {
			return nil, nil
		}
		var id, model string
		if v, ok := msg["id"].(string); ok {
			id = v
		}
		if v, ok := msg["model"].(string); ok {
			model = v
		}
		return &types.StreamChunk{
			ID:     id,
			Object: "chat.completion.chunk",
			Model:  model,
			Choices: []types.StreamChoice{{
				Index: 0,
				Delta: types.StreamDelta{Role: types.RoleAssistant},
			}},
		}, nil

	case "message_delta":
		delta, ok := event["delta"].(map[string]any)
		if !ok {
			return nil, nil
		}
		stopReason, ok := delta["stop_reason"].(string)
		if ok && stopReason != "" {
			return &types.StreamChunk{
				Object: "chat.completion.chunk",
				Choices: []types.StreamChoice{{
					Index:        0,
					FinishReason: mapStopReason(stopReason),
				}},
			}, nil
		}
	}

	return nil, nil
}

// MapError converts an Anthropic error response to a standardized error.
func (p *Provider) MapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
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

	// Anthropic signals overload with 529; that and any other 5xx is a
	// transient upstream failure. All of them retry and then fall back.
	if statusCode >= 500 {
		return errors.NewServiceUnavailableError(ProviderName, message)
	}
	return errors.NewInternalError(ProviderName, message)
}
