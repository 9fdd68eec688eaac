package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfit/coach"
	"github.com/emberfit/coach/internal/config"
	"github.com/emberfit/coach/providers/openai"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Let's start with your goals for this week."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 10, "total_tokens": 30}
		}`)
	}))
	t.Cleanup(upstream.Close)

	client, err := coach.New(
		coach.WithProviderInstance(openai.New(
			openai.WithAPIKey("test-key"),
			openai.WithBaseURL(upstream.URL),
		)),
		coach.WithRetry(0, time.Millisecond),
		coach.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	h := newHandler(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", h.healthCheck)
	mux.HandleFunc("POST /v1/chat", h.chat)
	mux.HandleFunc("GET /v1/sessions/{id}", h.getSession)
	mux.HandleFunc("PUT /v1/sessions/{id}/mood", h.updateMood)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.endSession)
	mux.HandleFunc("GET /v1/cache/stats", h.cacheStats)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestHandler_Chat(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/v1/chat",
		`{"user_id": "u1", "session_id": "s1", "message": "Help me plan my week"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Content  string `json:"content"`
		Category string `json:"category"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Let's start with your goals for this week.", body.Content)
	assert.NotEmpty(t, body.Category)
}

func TestHandler_ChatValidation(t *testing.T) {
	server := newTestServer(t)

	for _, body := range []string{
		`not json`,
		`{"session_id": "s1", "message": "hi"}`,
	} {
		resp := postJSON(t, server.URL+"/v1/chat", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var envelope struct {
			Error struct {
				Type string `json:"type"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
		assert.NotEmpty(t, envelope.Error.Type)
		resp.Body.Close()
	}
}

func TestHandler_SessionLifecycle(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/v1/chat",
		`{"user_id": "u1", "session_id": "s1", "message": "hello"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(server.URL + "/v1/sessions/s1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sess struct {
		UserID  string `json:"user_id"`
		History []any  `json:"history"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	resp.Body.Close()
	assert.Equal(t, "u1", sess.UserID)
	assert.Len(t, sess.History, 2)

	req, _ := http.NewRequest(http.MethodPut, server.URL+"/v1/sessions/s1/mood",
		strings.NewReader(`{"energy": 9}`))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated struct {
		Mood struct {
			Energy int `json:"energy"`
		} `json:"mood"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	resp.Body.Close()
	assert.Equal(t, 9, updated.Mood.Energy)

	req, _ = http.NewRequest(http.MethodDelete, server.URL+"/v1/sessions/s1", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(server.URL + "/v1/sessions/s1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_CacheStats(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/v1/cache/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		EntryCount int `json:"entry_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 0, stats.EntryCount)
}

func TestHandler_Health(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		logger := newLogger(config.LoggingConfig{Level: level, Format: "text"})
		require.NotNil(t, logger, fmt.Sprintf("level %q", level))
	}
}
