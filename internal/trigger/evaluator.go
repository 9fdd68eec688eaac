package trigger

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/emberfit/coach/internal/metrics"
	"github.com/emberfit/coach/pkg/types"
)

// DefaultDailyCap is the per-user rolling notification budget.
const DefaultDailyCap = 10

// Config holds configuration for the Evaluator.
type Config struct {
	Rules    []Rule
	DailyCap int
	DND      []Window
	Logger   *slog.Logger
}

// Evaluator evaluates trigger rules against health telemetry and emits
// notifications. Safe for concurrent use across users.
type Evaluator struct {
	mu       sync.Mutex
	rules    map[string]*Rule
	order    []string
	limiters map[string]*rate.Limiter

	dailyCap int
	dnd      []Window
	logger   *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewEvaluator creates an evaluator from validated rules. Rules with
// malformed conditions are rejected.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if cfg.DailyCap <= 0 {
		cfg.DailyCap = DefaultDailyCap
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &Evaluator{
		rules:    make(map[string]*Rule),
		limiters: make(map[string]*rate.Limiter),
		dailyCap: cfg.DailyCap,
		dnd:      cfg.DND,
		logger:   cfg.Logger,
		now:      time.Now,
	}

	for i := range cfg.Rules {
		rule := cfg.Rules[i]
		if rule.ID == "" {
			return nil, fmt.Errorf("rule %d: id is required", i)
		}
		if _, exists := e.rules[rule.ID]; exists {
			return nil, fmt.Errorf("duplicate rule id: %s", rule.ID)
		}
		if err := rule.Condition.Validate(); err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		e.rules[rule.ID] = &rule
		e.order = append(e.order, rule.ID)
	}

	return e, nil
}

// Evaluate runs every enabled rule against the user's telemetry and
// returns the notifications to deliver. Firing rules always update their
// counters; the per-user daily cap silently suppresses non-urgent
// notifications once exhausted.
func (e *Evaluator) Evaluate(userID string, current *types.HealthSnapshot, history map[string][]types.MetricPoint) []types.Notification {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	var out []types.Notification
	for _, id := range e.order {
		rule := e.rules[id]
		if !rule.Enabled {
			continue
		}

		fired, cur, prev := evalCondition(&rule.Condition, now, current, history)
		if !fired {
			continue
		}

		rule.triggerCount++
		rule.lastTriggeredAt = now

		if rule.Action.Priority != types.PriorityUrgent && !e.allow(userID) {
			metrics.NotificationsSuppressed.Inc()
			e.logger.Debug("notification suppressed by daily cap",
				"user", userID, "rule", rule.ID)
			continue
		}

		out = append(out, types.Notification{
			ID:            uuid.NewString(),
			RuleID:        rule.ID,
			UserID:        userID,
			Title:         renderTemplate(rule.Action.Title, rule.Condition.Metric, cur, prev),
			Message:       renderTemplate(rule.Action.Message, rule.Condition.Metric, cur, prev),
			Actions:       rule.Action.Suggestions,
			Priority:      rule.Action.Priority,
			Metric:        rule.Condition.Metric,
			CurrentValue:  cur,
			PreviousValue: prev,
			CreatedAt:     now,
			DeliverAt:     deliveryTime(now, rule.Action.Delivery, e.dnd),
		})
	}

	return out
}

// Stats returns the counters for one rule.
func (e *Evaluator) Stats(ruleID string) (RuleStats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[ruleID]
	if !ok {
		return RuleStats{}, false
	}
	return RuleStats{
		RuleID:          rule.ID,
		Enabled:         rule.Enabled,
		TriggerCount:    rule.triggerCount,
		LastTriggeredAt: rule.lastTriggeredAt,
	}, true
}

// SetEnabled flips a rule's enabled flag. Returns false for unknown ids.
func (e *Evaluator) SetEnabled(ruleID string, enabled bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[ruleID]
	if !ok {
		return false
	}
	rule.Enabled = enabled
	return true
}

// ApplyEnabledFlags updates rule enabled flags in bulk, e.g. after a
// config reload. Unknown ids are ignored.
func (e *Evaluator) ApplyEnabledFlags(flags map[string]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, enabled := range flags {
		if rule, ok := e.rules[id]; ok {
			rule.Enabled = enabled
		}
	}
}

// allow consumes one token from the user's rolling daily budget.
// Must be called with the lock held.
func (e *Evaluator) allow(userID string) bool {
	lim, ok := e.limiters[userID]
	if !ok {
		// Refill spread across the day; burst equals the full budget.
		lim = rate.NewLimiter(rate.Limit(float64(e.dailyCap)/(24*60*60)), e.dailyCap)
		e.limiters[userID] = lim
	}
	return lim.Allow()
}

func renderTemplate(template, metric string, current, previous float64) string {
	r := strings.NewReplacer(
		"{{metric}}", metric,
		"{{value}}", trimFloat(current),
		"{{previous}}", trimFloat(previous),
	)
	return r.Replace(template)
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
