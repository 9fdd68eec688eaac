// Package coach provides the conversation orchestration layer for a
// personal-coaching chat application as a Go library. It sits between a
// chat surface and an LLM completion API and manages session context,
// prompt assembly, response caching, retries with fallback content, and
// proactive trigger notifications.
//
// Basic usage:
//
//	client, err := coach.New(
//	    coach.WithProvider(coach.ProviderConfig{
//	        Name:   "openai",
//	        Type:   "openai",
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	        Model:  "gpt-4o-mini",
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.Chat(ctx, &coach.ChatRequest{
//	    UserID:    "u1",
//	    SessionID: "s1",
//	    Message:   "How did I sleep this week?",
//	})
package coach

import (
	"github.com/emberfit/coach/internal/cache"
	"github.com/emberfit/coach/internal/session"
	"github.com/emberfit/coach/internal/trigger"
	"github.com/emberfit/coach/pkg/errors"
	"github.com/emberfit/coach/pkg/provider"
	"github.com/emberfit/coach/pkg/types"
)

// Version is the current version of the coach library.
const Version = "1.0.0"

// Re-export core request/response types for convenience.
type (
	// Response is a coaching reply, cached or fresh, scripted or generated.
	Response = types.Response

	// Category is a coaching topic bucket.
	Category = types.Category

	// Message is a single entry in the prompt sent to the provider.
	Message = types.Message

	// Turn is a single chat turn in a session history.
	Turn = types.Turn

	// Mood is the user's tracked emotional state.
	Mood = types.Mood

	// MoodUpdate is a partial mood change.
	MoodUpdate = types.MoodUpdate

	// ContextualFactor is an observed influence on the user's state.
	ContextualFactor = types.ContextualFactor

	// Goal is a tracked user goal.
	Goal = types.Goal

	// HealthSnapshot is the latest metric values for a user.
	HealthSnapshot = types.HealthSnapshot

	// MetricPoint is a historical metric sample.
	MetricPoint = types.MetricPoint

	// Notification is a proactive coaching notification.
	Notification = types.Notification

	// Usage contains token usage statistics.
	Usage = types.Usage

	// StreamChunk is a single frame of a streaming completion.
	StreamChunk = types.StreamChunk
)

// Re-export provider types.
type (
	// Provider is the completion adapter interface.
	Provider = provider.Provider

	// ProviderConfig contains provider-specific configuration.
	ProviderConfig = provider.Config

	// ProviderFactory creates provider instances from configuration.
	ProviderFactory = provider.Factory

	// TemplateProvider supplies canned fallback and category content.
	TemplateProvider = provider.TemplateProvider

	// TemplateContent is one piece of canned coaching copy.
	TemplateContent = provider.TemplateContent

	// HealthDataProvider supplies current and historical metrics.
	HealthDataProvider = provider.HealthDataProvider
)

// Re-export cache types.
type (
	// CacheStore is the pluggable second-tier cache interface.
	CacheStore = cache.Store

	// CacheStats holds cache statistics for monitoring.
	CacheStats = cache.Stats

	// StreamState is a snapshot of an in-flight stream buffer.
	StreamState = cache.StreamState
)

// Re-export trigger types.
type (
	// TriggerRule maps a telemetry condition to a notification action.
	TriggerRule = trigger.Rule

	// TriggerCondition describes when a rule fires.
	TriggerCondition = trigger.Condition

	// TriggerAction is the notification a fired rule produces.
	TriggerAction = trigger.Action

	// TriggerStats is a read-only view of a rule's counters.
	TriggerStats = trigger.RuleStats

	// Insight is a notable correlation between two metrics.
	Insight = trigger.Insight

	// Window is a daily wall-clock interval used for DND scheduling.
	Window = trigger.Window
)

// Re-export error types.
type (
	// CoachError is the standardized orchestration error.
	CoachError = errors.CoachError
)

// Re-export error type constants.
const (
	TypeAuthentication     = errors.TypeAuthentication
	TypeRateLimit          = errors.TypeRateLimit
	TypeInvalidRequest     = errors.TypeInvalidRequest
	TypeNotFound           = errors.TypeNotFound
	TypeSessionNotFound    = errors.TypeSessionNotFound
	TypeValidation         = errors.TypeValidation
	TypeTimeout            = errors.TypeTimeout
	TypeServiceUnavailable = errors.TypeServiceUnavailable
	TypeInternalError      = errors.TypeInternalError
)

// Re-export error helpers.
var (
	IsRetryable       = errors.IsRetryable
	IsSessionNotFound = errors.IsSessionNotFound
)

// SessionContext is a read-only snapshot of one conversation's state.
type SessionContext = session.Context

// ChatRequest is one user message addressed to the coach.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`

	// SkipCache forces a fresh completion. The result is still written
	// back to the cache when it qualifies.
	SkipCache bool `json:"skip_cache,omitempty"`
}
