package coach

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/emberfit/coach/internal/cache"
	"github.com/emberfit/coach/internal/httputil"
	"github.com/emberfit/coach/internal/metrics"
	"github.com/emberfit/coach/internal/prompt"
	"github.com/emberfit/coach/internal/session"
	"github.com/emberfit/coach/internal/templates"
	"github.com/emberfit/coach/internal/trigger"
	"github.com/emberfit/coach/pkg/errors"
	"github.com/emberfit/coach/pkg/provider"
	"github.com/emberfit/coach/pkg/types"
	"github.com/emberfit/coach/providers"
)

// fallbackConfidence marks scripted fallback responses. Below the cache
// floor, so fallbacks are never cached.
const fallbackConfidence = 0.3

// historyDays is how far back trigger evaluation and insights look.
const historyDays = 14

// Client is the main entry point for the coach library. It manages
// session context, prompt assembly, response caching, completion
// execution with retries, fallback content, and trigger notifications.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	provider   provider.Provider
	sessions   *session.Store
	cache      *cache.ResponseCache
	templates  TemplateProvider
	healthData HealthDataProvider
	evaluator  *trigger.Evaluator
	httpClient *http.Client
	logger     *slog.Logger
	config     *ClientConfig
	scorer     Scorer

	// group coalesces identical in-flight completions.
	group singleflight.Group
}

// New creates a new coach client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Client{
		config: cfg,
		logger: cfg.Logger,
	}

	switch {
	case cfg.ProviderInstance != nil:
		c.provider = cfg.ProviderInstance
	case cfg.Provider != nil:
		prov, err := providers.Create(*cfg.Provider)
		if err != nil {
			return nil, fmt.Errorf("create provider %s: %w", cfg.Provider.Name, err)
		}
		c.provider = prov
	default:
		return nil, fmt.Errorf("a provider is required: use WithProvider or WithProviderInstance")
	}

	c.templates = cfg.Templates
	if c.templates == nil {
		c.templates = templates.NewStaticProvider()
	}
	c.healthData = cfg.HealthData

	c.scorer = cfg.Scorer
	if c.scorer == nil {
		c.scorer = defaultScorer
	}

	c.sessions = session.NewStore(session.Config{
		MaxHistory:    cfg.SessionMaxHistory,
		Expiry:        cfg.SessionExpiry,
		SweepInterval: cfg.SessionSweepInterval,
		Logger:        cfg.Logger,
	})

	c.cache = cache.New(cache.Config{
		MaxEntries:    cfg.CacheMaxEntries,
		DefaultTTL:    cfg.CacheTTL,
		MinConfidence: cfg.CacheMinConfidence,
		Store:         cfg.CacheStore,
		Logger:        cfg.Logger,
	})

	evaluator, err := trigger.NewEvaluator(trigger.Config{
		Rules:    cfg.TriggerRules,
		DailyCap: cfg.DailyCap,
		DND:      cfg.DND,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("trigger rules: %w", err)
	}
	c.evaluator = evaluator

	// HTTP client with connection pooling
	c.httpClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: cfg.Timeout,
	}

	c.logger.Info("coach client initialized",
		"provider", c.provider.Name(),
		"retry_count", cfg.RetryCount,
		"trigger_rules", len(cfg.TriggerRules),
	)

	return c, nil
}

// Chat processes one user message and returns a coaching response. The
// full pipeline runs on every call: session context update, topic
// classification, prompt assembly, cache lookup, completion with retries,
// and fallback content when the provider stays unavailable.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	start := time.Now()

	if err := validateChatRequest(req); err != nil {
		return nil, err
	}

	if _, err := c.sessions.GetOrCreate(req.UserID, req.SessionID); err != nil {
		return nil, err
	}

	sessCtx, err := c.sessions.AppendMessage(req.SessionID, types.Turn{
		Sender:  types.RoleUser,
		Content: req.Message,
	})
	if err != nil {
		return nil, err
	}

	category := prompt.Classify(req.Message, sessCtx.Topic)

	// The turn just appended goes to Assemble separately; drop it from the
	// history window so it is not rendered twice.
	if n := len(sessCtx.History); n > 0 {
		sessCtx.History = sessCtx.History[:n-1]
	}

	snapshot := c.currentMetrics(ctx, req.UserID)
	messages := prompt.Assemble(category, sessCtx, snapshot, req.Message)
	key := cache.KeyFor(messages, req.UserID, sessCtx.FactorTypes())

	if !req.SkipCache {
		if cached, ok := c.cache.Get(ctx, key); ok {
			metrics.CacheHits.Inc()
			metrics.ChatRequests.WithLabelValues(string(category), "cached").Inc()
			c.recordAssistantTurn(req.SessionID, cached)
			c.observeLatency(category, start)
			return cached, nil
		}
		metrics.CacheMisses.Inc()
	}

	resp, err := c.complete(ctx, req, category, messages, key)
	if err != nil {
		metrics.ChatRequests.WithLabelValues(string(category), "error").Inc()
		return nil, err
	}

	outcome := "completed"
	if resp.Fallback {
		outcome = "fallback"
	}
	metrics.ChatRequests.WithLabelValues(string(category), outcome).Inc()

	c.recordAssistantTurn(req.SessionID, resp)
	c.observeLatency(category, start)
	return resp, nil
}

// complete runs the completion through the coalescing group. Concurrent
// calls with the same cache key share one provider request. Unretryable
// errors propagate; retryable exhaustion turns into fallback content.
func (c *Client) complete(ctx context.Context, req *ChatRequest, category types.Category, messages []types.Message, key string) (*Response, error) {
	result, err, shared := c.group.Do(key, func() (any, error) {
		content, finishReason, usage, execErr := c.executeWithRetry(ctx, req, messages)
		if execErr != nil {
			if !errors.IsRetryable(execErr) {
				return nil, execErr
			}
			c.logger.Warn("completion unavailable, serving fallback",
				"user", req.UserID, "category", category, "error", execErr)
			return c.fallbackResponse(category), nil
		}

		resp := &types.Response{
			ID:         uuid.NewString(),
			Content:    content,
			Category:   category,
			Confidence: c.scorer(category, content, finishReason, usage),
			CreatedAt:  time.Now(),
		}
		if usage != nil {
			resp.TokensUsed = usage.CompletionTokens
			metrics.TokensUsed.WithLabelValues(c.provider.Name()).Add(float64(usage.CompletionTokens))
		}

		c.cache.Set(ctx, key, resp, 0)
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		metrics.CoalescedRequests.Inc()
	}

	resp := result.(*types.Response)
	if shared {
		// Followers get their own copy so per-caller mutation is safe.
		clone := *resp
		resp = &clone
	}
	return resp, nil
}

// executeWithRetry runs the completion with exponential backoff. A
// non-retryable error aborts immediately.
func (c *Client) executeWithRetry(ctx context.Context, req *ChatRequest, messages []types.Message) (string, string, *types.Usage, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			metrics.ProviderRetries.WithLabelValues(c.provider.Name()).Inc()
			select {
			case <-ctx.Done():
				return "", "", nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		content, finishReason, usage, err := c.executeOnce(ctx, req, messages)
		if err == nil {
			return content, finishReason, usage, nil
		}

		lastErr = err
		if !errors.IsRetryable(err) {
			return "", "", nil, err
		}

		c.logger.Debug("completion attempt failed",
			"attempt", attempt+1, "error", err)
	}

	return "", "", nil, lastErr
}

func (c *Client) executeOnce(ctx context.Context, req *ChatRequest, messages []types.Message) (string, string, *types.Usage, error) {
	start := time.Now()

	completionReq := &types.CompletionRequest{
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		User:        req.UserID,
	}

	httpReq, err := c.provider.BuildRequest(ctx, completionReq)
	if err != nil {
		return "", "", nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", "", nil, errors.NewServiceUnavailableError(c.provider.Name(), err.Error())
	}
	defer resp.Body.Close()

	metrics.ProviderRequests.WithLabelValues(c.provider.Name(), strconv.Itoa(resp.StatusCode)).Inc()
	metrics.ProviderLatency.WithLabelValues(c.provider.Name()).Observe(time.Since(start).Seconds())

	if resp.StatusCode >= 400 {
		body, _ := httputil.ReadLimitedBody(resp.Body, httputil.DefaultMaxResponseBodyBytes)
		return "", "", nil, c.provider.MapError(resp.StatusCode, body)
	}

	completion, err := c.provider.ParseResponse(resp)
	if err != nil {
		return "", "", nil, fmt.Errorf("parse response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", "", nil, errors.NewInternalError(c.provider.Name(), "completion returned no choices")
	}

	choice := completion.Choices[0]
	return choice.Message.Content, choice.FinishReason, completion.Usage, nil
}

// fallbackResponse builds a scripted reply when the provider is
// unavailable. Same shape as a generated response; low confidence keeps
// it out of the cache.
func (c *Client) fallbackResponse(category types.Category) *types.Response {
	content, ok := c.templates.Lookup(category, "")
	if !ok {
		content = TemplateContent{
			Text: "I'm having trouble responding right now. Please try again in a moment.",
		}
	}

	return &types.Response{
		ID:          uuid.NewString(),
		Content:     content.Text,
		Suggestions: content.Suggestions,
		Category:    category,
		Confidence:  fallbackConfidence,
		Fallback:    true,
		CreatedAt:   time.Now(),
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.config.RetryBackoff * time.Duration(1<<(attempt-1))
	if c.config.RetryMaxBackoff > 0 && d > c.config.RetryMaxBackoff {
		d = c.config.RetryMaxBackoff
	}
	if c.config.RetryJitter > 0 {
		jitter := 1 + c.config.RetryJitter*(2*rand.Float64()-1)
		d = time.Duration(float64(d) * jitter)
	}
	return d
}

func (c *Client) recordAssistantTurn(sessionID string, resp *Response) {
	_, err := c.sessions.AppendMessage(sessionID, types.Turn{
		Sender:  types.RoleAssistant,
		Content: resp.Content,
		Meta: &types.TurnMeta{
			Confidence: resp.Confidence,
			Fallback:   resp.Fallback,
		},
	})
	if err != nil {
		c.logger.Error("record assistant turn", "session", sessionID, "error", err)
	}
	metrics.ActiveSessions.Set(float64(c.sessions.Len()))
}

func (c *Client) currentMetrics(ctx context.Context, userID string) *types.HealthSnapshot {
	if c.healthData == nil {
		return nil
	}
	snapshot, err := c.healthData.Current(ctx, userID)
	if err != nil {
		// Metrics are enrichment; the conversation continues without them.
		c.logger.Debug("health snapshot unavailable", "user", userID, "error", err)
		return nil
	}
	return snapshot
}

func (c *Client) observeLatency(category types.Category, start time.Time) {
	metrics.ChatLatency.WithLabelValues(string(category)).Observe(time.Since(start).Seconds())
}

func validateChatRequest(req *ChatRequest) error {
	if req == nil {
		return errors.NewValidationError("request is nil")
	}
	if req.UserID == "" {
		return errors.NewValidationError("user_id is required")
	}
	if req.SessionID == "" {
		return errors.NewValidationError("session_id is required")
	}
	if req.Message == "" {
		return errors.NewValidationError("message is required")
	}
	return nil
}

// defaultScorer is a cheap content heuristic: empty, truncated, or very
// short replies score low, substantial completed replies score high.
func defaultScorer(_ types.Category, content, finishReason string, _ *types.Usage) float64 {
	switch {
	case len(content) == 0:
		return 0
	case finishReason == "length":
		// Cut off at the token limit; not worth serving to anyone else.
		return 0.5
	case len(content) < 20:
		return 0.5
	default:
		return 0.9
	}
}

// Session returns a read-only snapshot of a session's context.
func (c *Client) Session(sessionID string) (*SessionContext, error) {
	return c.sessions.Get(sessionID)
}

// UpdateMood applies a partial mood update to a session.
func (c *Client) UpdateMood(sessionID string, update MoodUpdate) (*SessionContext, error) {
	return c.sessions.UpdateMood(sessionID, update)
}

// UpdateGoals replaces the goals tracked for a session.
func (c *Client) UpdateGoals(sessionID string, goals []Goal) (*SessionContext, error) {
	return c.sessions.UpdateGoals(sessionID, goals)
}

// UpdateFactor records or refreshes a contextual factor for a session.
func (c *Client) UpdateFactor(sessionID string, factor ContextualFactor) (*SessionContext, error) {
	return c.sessions.UpdateContextualFactor(sessionID, factor)
}

// EndSession removes a session's context immediately.
func (c *Client) EndSession(sessionID string) {
	c.sessions.Delete(sessionID)
	metrics.ActiveSessions.Set(float64(c.sessions.Len()))
}

// CacheStats returns response cache statistics for monitoring.
func (c *Client) CacheStats() CacheStats {
	stats := c.cache.Stats()
	metrics.CacheEntries.Set(float64(stats.EntryCount))
	return stats
}

// EvaluateTriggers runs the notification rules against the user's current
// and historical metrics. Requires a health data provider.
func (c *Client) EvaluateTriggers(ctx context.Context, userID string) ([]Notification, error) {
	if c.healthData == nil {
		return nil, fmt.Errorf("no health data provider configured")
	}

	snapshot, err := c.healthData.Current(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("current metrics: %w", err)
	}

	history, err := c.metricHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	notifications := c.evaluator.Evaluate(userID, snapshot, history)
	for _, n := range notifications {
		metrics.NotificationsEmitted.WithLabelValues(n.RuleID, string(n.Priority)).Inc()
	}
	return notifications, nil
}

// Insights computes notable metric correlations for a user over the
// recent history window. minAbs is the coefficient magnitude floor.
func (c *Client) Insights(ctx context.Context, userID string, minAbs float64) ([]Insight, error) {
	if c.healthData == nil {
		return nil, fmt.Errorf("no health data provider configured")
	}

	history, err := c.metricHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return trigger.Insights(history, minAbs), nil
}

func (c *Client) metricHistory(ctx context.Context, userID string) (map[string][]types.MetricPoint, error) {
	wellKnown := []string{
		types.MetricSleepScore,
		types.MetricRestingHR,
		types.MetricSteps,
		types.MetricActiveMinutes,
		types.MetricHRV,
		types.MetricWeight,
	}

	history := make(map[string][]types.MetricPoint, len(wellKnown))
	for _, metric := range wellKnown {
		points, err := c.healthData.History(ctx, userID, metric, historyDays)
		if err != nil {
			return nil, fmt.Errorf("history for %s: %w", metric, err)
		}
		if len(points) > 0 {
			history[metric] = points
		}
	}
	return history, nil
}

// TriggerStats returns the counters for one notification rule.
func (c *Client) TriggerStats(ruleID string) (TriggerStats, bool) {
	return c.evaluator.Stats(ruleID)
}

// SetRuleEnabled flips a notification rule's enabled flag at runtime.
func (c *Client) SetRuleEnabled(ruleID string, enabled bool) bool {
	return c.evaluator.SetEnabled(ruleID, enabled)
}

// ApplyRuleFlags updates rule enabled flags in bulk, e.g. after a config
// reload.
func (c *Client) ApplyRuleFlags(flags map[string]bool) {
	c.evaluator.ApplyEnabledFlags(flags)
}

// Close releases all resources held by the client.
func (c *Client) Close() error {
	c.sessions.Close()
	err := c.cache.Close()
	c.httpClient.CloseIdleConnections()
	c.logger.Info("coach client closed")
	return err
}
