package main

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/emberfit/coach"
	coacherrors "github.com/emberfit/coach/pkg/errors"
	"github.com/emberfit/coach/pkg/types"
)

// handler exposes the coach client over HTTP.
type handler struct {
	client *coach.Client
	logger *slog.Logger
}

func newHandler(client *coach.Client, logger *slog.Logger) *handler {
	return &handler{client: client, logger: logger}
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// chat handles POST /v1/chat.
func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	var req coach.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, coacherrors.NewValidationError("invalid JSON: "+err.Error()))
		return
	}
	defer r.Body.Close()

	resp, err := h.client.Chat(r.Context(), &req)
	if err != nil {
		h.logger.Error("chat failed", "session_id", req.SessionID, "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// chatStream handles POST /v1/chat/stream, relaying chunks as SSE.
func (h *handler) chatStream(w http.ResponseWriter, r *http.Request) {
	var req coach.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, coacherrors.NewValidationError("invalid JSON: "+err.Error()))
		return
	}
	defer r.Body.Close()

	stream, err := h.client.ChatStream(r.Context(), &req)
	if err != nil {
		h.logger.Error("chat stream failed", "session_id", req.SessionID, "error", err)
		h.writeError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, canFlush := w.(http.Flusher)

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			io.WriteString(w, "data: [DONE]\n\n")
			if canFlush {
				flusher.Flush()
			}
			return
		}
		if err != nil {
			h.logger.Warn("stream interrupted", "session_id", req.SessionID, "error", err)
			return
		}

		data, err := json.Marshal(chunk)
		if err != nil {
			continue
		}
		io.WriteString(w, "data: ")
		w.Write(data)
		io.WriteString(w, "\n\n")
		if canFlush {
			flusher.Flush()
		}
	}
}

// getSession handles GET /v1/sessions/{id}.
func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.client.Session(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess)
}

// updateMood handles PUT /v1/sessions/{id}/mood.
func (h *handler) updateMood(w http.ResponseWriter, r *http.Request) {
	var update types.MoodUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, coacherrors.NewValidationError("invalid JSON: "+err.Error()))
		return
	}
	defer r.Body.Close()

	sess, err := h.client.UpdateMood(r.PathValue("id"), update)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess)
}

// updateGoals handles PUT /v1/sessions/{id}/goals.
func (h *handler) updateGoals(w http.ResponseWriter, r *http.Request) {
	var goals []types.Goal
	if err := json.NewDecoder(r.Body).Decode(&goals); err != nil {
		h.writeError(w, coacherrors.NewValidationError("invalid JSON: "+err.Error()))
		return
	}
	defer r.Body.Close()

	sess, err := h.client.UpdateGoals(r.PathValue("id"), goals)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess)
}

// addFactor handles POST /v1/sessions/{id}/factors.
func (h *handler) addFactor(w http.ResponseWriter, r *http.Request) {
	var factor types.ContextualFactor
	if err := json.NewDecoder(r.Body).Decode(&factor); err != nil {
		h.writeError(w, coacherrors.NewValidationError("invalid JSON: "+err.Error()))
		return
	}
	defer r.Body.Close()

	sess, err := h.client.UpdateFactor(r.PathValue("id"), factor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sess)
}

// endSession handles DELETE /v1/sessions/{id}.
func (h *handler) endSession(w http.ResponseWriter, r *http.Request) {
	h.client.EndSession(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// evaluateTriggers handles POST /v1/users/{id}/triggers/evaluate.
func (h *handler) evaluateTriggers(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.client.EvaluateTriggers(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if notifications == nil {
		notifications = []types.Notification{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// insights handles GET /v1/users/{id}/insights?min_correlation=0.5.
func (h *handler) insights(w http.ResponseWriter, r *http.Request) {
	minAbs := 0.5
	if raw := r.URL.Query().Get("min_correlation"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			h.writeError(w, coacherrors.NewValidationError("min_correlation must be between 0 and 1"))
			return
		}
		minAbs = parsed
	}

	insights, err := h.client.Insights(r.Context(), r.PathValue("id"), minAbs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if insights == nil {
		insights = []coach.Insight{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

// cacheStats handles GET /v1/cache/stats.
func (h *handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.client.CacheStats())
}

// healthCheck handles GET /health/live and /health/ready.
func (h *handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	coachErr, ok := err.(*coacherrors.CoachError)
	if !ok {
		coachErr = coacherrors.NewInternalError("", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(coachErr.HTTPStatusCode())
	json.NewEncoder(w).Encode(errorResponse{
		Error: errorDetail{
			Message: coachErr.Message,
			Type:    coachErr.Type,
		},
	})
}
