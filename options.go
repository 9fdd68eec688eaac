package coach

import (
	"log/slog"
	"time"

	"github.com/emberfit/coach/pkg/types"
)

// Scorer estimates confidence for a generated response. Implementations
// receive the classified category, the provider's raw content, and the
// finish reason ("length" marks a reply cut off at the token limit).
type Scorer func(category types.Category, content, finishReason string, usage *types.Usage) float64

// ClientConfig holds all configuration for the coach client.
type ClientConfig struct {
	// Provider configuration
	Provider         *ProviderConfig
	ProviderInstance Provider

	// Collaborators
	Templates  TemplateProvider
	HealthData HealthDataProvider

	// Session store
	SessionMaxHistory    int
	SessionExpiry        time.Duration
	SessionSweepInterval time.Duration

	// Response cache
	CacheMaxEntries    int
	CacheTTL           time.Duration
	CacheMinConfidence float64
	CacheStore         CacheStore // optional second tier

	// Retries
	RetryCount      int
	RetryBackoff    time.Duration
	RetryMaxBackoff time.Duration
	RetryJitter     float64

	// Completion
	MaxTokens   int
	Temperature *float64

	// Triggers
	TriggerRules []TriggerRule
	DailyCap     int
	DND          []Window

	// HTTP
	Timeout time.Duration

	// Confidence scoring
	Scorer Scorer

	// Logging
	Logger *slog.Logger
}

// Option is a function that configures the Client.
type Option func(*ClientConfig)

// defaultConfig returns sensible defaults.
func defaultConfig() *ClientConfig {
	return &ClientConfig{
		RetryCount:      3,
		RetryBackoff:    time.Second,
		RetryMaxBackoff: 5 * time.Second,
		RetryJitter:     0.2,
		CacheTTL:        time.Hour,
		Timeout:         30 * time.Second,
		Logger:          slog.Default(),
	}
}

// WithProvider configures the completion backend by type.
// The adapter is created automatically from the registered factories.
//
// Example:
//
//	coach.WithProvider(coach.ProviderConfig{
//	    Name:   "openai",
//	    Type:   "openai",
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o-mini",
//	})
func WithProvider(cfg ProviderConfig) Option {
	return func(c *ClientConfig) {
		c.Provider = &cfg
	}
}

// WithProviderInstance sets a pre-configured provider adapter.
// Use this when you need configuration beyond what ProviderConfig offers.
func WithProviderInstance(prov Provider) Option {
	return func(c *ClientConfig) {
		c.ProviderInstance = prov
	}
}

// WithTemplates sets the canned-content source used for fallback
// responses. A built-in rotating source is used when unset.
func WithTemplates(tp TemplateProvider) Option {
	return func(c *ClientConfig) {
		c.Templates = tp
	}
}

// WithHealthData sets the health metrics source. Prompts include current
// metrics, and trigger evaluation uses metric history, only when set.
func WithHealthData(hp HealthDataProvider) Option {
	return func(c *ClientConfig) {
		c.HealthData = hp
	}
}

// WithSessionLimits configures the context store: how many turns are kept
// per session and how long an idle session survives.
func WithSessionLimits(maxHistory int, expiry time.Duration) Option {
	return func(c *ClientConfig) {
		c.SessionMaxHistory = maxHistory
		c.SessionExpiry = expiry
	}
}

// WithSessionSweepInterval sets how often expired sessions are swept.
func WithSessionSweepInterval(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.SessionSweepInterval = d
	}
}

// WithCache configures the response cache size and entry TTL.
func WithCache(maxEntries int, ttl time.Duration) Option {
	return func(c *ClientConfig) {
		c.CacheMaxEntries = maxEntries
		c.CacheTTL = ttl
	}
}

// WithCacheMinConfidence sets the confidence floor below which responses
// are never cached.
func WithCacheMinConfidence(min float64) Option {
	return func(c *ClientConfig) {
		c.CacheMinConfidence = min
	}
}

// WithCacheStore attaches a second-tier cache store, e.g. the Redis store
// from caches/redis, shared across processes.
func WithCacheStore(store CacheStore) Option {
	return func(c *ClientConfig) {
		c.CacheStore = store
	}
}

// WithRetry configures retry behavior.
// count: number of retry attempts (0 = no retries)
// backoff: initial backoff duration (exponential backoff is applied)
func WithRetry(count int, backoff time.Duration) Option {
	return func(c *ClientConfig) {
		c.RetryCount = count
		c.RetryBackoff = backoff
	}
}

// WithRetryMaxBackoff sets the maximum backoff duration for retries.
// Use 0 to disable the cap.
func WithRetryMaxBackoff(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.RetryMaxBackoff = d
	}
}

// WithRetryJitter sets the jitter ratio for retries (0.0 - 1.0).
func WithRetryJitter(jitter float64) Option {
	return func(c *ClientConfig) {
		c.RetryJitter = jitter
	}
}

// WithMaxTokens caps completion length per request.
func WithMaxTokens(n int) Option {
	return func(c *ClientConfig) {
		c.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature for completions.
func WithTemperature(t float64) Option {
	return func(c *ClientConfig) {
		c.Temperature = &t
	}
}

// WithTriggerRules configures the proactive notification rules.
func WithTriggerRules(rules ...TriggerRule) Option {
	return func(c *ClientConfig) {
		c.TriggerRules = append(c.TriggerRules, rules...)
	}
}

// WithNotificationCap sets the per-user daily notification budget.
// Urgent notifications bypass the cap.
func WithNotificationCap(n int) Option {
	return func(c *ClientConfig) {
		c.DailyCap = n
	}
}

// WithDoNotDisturb sets daily windows during which notification delivery
// is deferred to the window's end.
func WithDoNotDisturb(windows ...Window) Option {
	return func(c *ClientConfig) {
		c.DND = append(c.DND, windows...)
	}
}

// WithTimeout sets the HTTP timeout for completion requests.
func WithTimeout(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.Timeout = d
	}
}

// WithScorer sets a custom confidence scorer for generated responses.
func WithScorer(s Scorer) Option {
	return func(c *ClientConfig) {
		c.Scorer = s
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *ClientConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
