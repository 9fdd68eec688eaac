package openai

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfit/coach/pkg/errors"
	"github.com/emberfit/coach/pkg/types"
)

func TestBuildRequest(t *testing.T) {
	temp := 0.2
	req := &types.CompletionRequest{
		Messages:    []types.Message{{Role: types.RoleUser, Content: "hi"}},
		Temperature: &temp,
		User:        "u1",
	}

	p := New(
		WithAPIKey("test-key"),
		WithBaseURL("https://api.test.com"),
		WithModel("gpt-4o-mini"),
		WithHeader("X-Org", "emberfit"),
	)

	httpReq, err := p.BuildRequest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "https://api.test.com/chat/completions", httpReq.URL.String())
	assert.Equal(t, "Bearer test-key", httpReq.Header.Get("Authorization"))
	assert.Equal(t, "application/json", httpReq.Header.Get("Content-Type"))
	assert.Equal(t, "emberfit", httpReq.Header.Get("X-Org"))

	body, err := io.ReadAll(httpReq.Body)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))

	assert.Equal(t, "gpt-4o-mini", payload["model"], "default model fills in")
	assert.InDelta(t, 0.2, payload["temperature"].(float64), 0.0001)
	assert.Equal(t, "u1", payload["user"])
}

func TestParseResponse(t *testing.T) {
	body := `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`

	p := New()
	resp, err := p.ParseResponse(&http.Response{Body: io.NopCloser(strings.NewReader(body))})
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", resp.ID)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestParseStreamChunk(t *testing.T) {
	p := New()

	t.Run("content delta", func(t *testing.T) {
		chunk, err := p.ParseStreamChunk([]byte(`data: {"id":"c1","choices":[{"index":0,"delta":{"content":"hel"}}]}`))
		require.NoError(t, err)
		require.NotNil(t, chunk)
		assert.Equal(t, "hel", chunk.Choices[0].Delta.Content)
	})

	t.Run("done sentinel", func(t *testing.T) {
		chunk, err := p.ParseStreamChunk([]byte("data: [DONE]"))
		require.NoError(t, err)
		assert.Nil(t, chunk)
	})

	t.Run("keep-alive", func(t *testing.T) {
		chunk, err := p.ParseStreamChunk([]byte("  "))
		require.NoError(t, err)
		assert.Nil(t, chunk)
	})
}

func TestMapError(t *testing.T) {
	p := New()
	body := []byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`)

	tests := []struct {
		status    int
		errType   string
		retryable bool
	}{
		{http.StatusUnauthorized, errors.TypeAuthentication, false},
		{http.StatusTooManyRequests, errors.TypeRateLimit, true},
		{http.StatusBadRequest, errors.TypeInvalidRequest, false},
		{http.StatusServiceUnavailable, errors.TypeServiceUnavailable, true},
		{http.StatusInternalServerError, errors.TypeServiceUnavailable, true},
		{599, errors.TypeServiceUnavailable, true},
		{http.StatusTeapot, errors.TypeInternalError, false},
	}

	for _, tt := range tests {
		err := p.MapError(tt.status, body)
		var coachErr *errors.CoachError
		require.ErrorAs(t, err, &coachErr)
		assert.Equal(t, tt.errType, coachErr.Type)
		assert.Equal(t, tt.retryable, coachErr.Retryable)
		assert.Equal(t, "bad key", coachErr.Message)
	}
}
