// Package trigger is a small rule engine over health telemetry. Enabled
// rules are evaluated against current and historical metrics and produce
// proactive coaching notifications with a computed delivery time.
package trigger

import (
	"fmt"
	"time"

	"github.com/emberfit/coach/pkg/types"
)

// ConditionKind selects the evaluation strategy for a rule.
type ConditionKind string

const (
	CondThreshold       ConditionKind = "threshold"
	CondConsecutiveDays ConditionKind = "consecutive_days"
	CondDecline         ConditionKind = "decline_percentage"
	CondCorrelation     ConditionKind = "correlation"
	CondTimeWindow      ConditionKind = "time_window"
)

// Op is a comparison operator for threshold conditions.
type Op string

const (
	OpGT  Op = ">"
	OpGTE Op = ">="
	OpLT  Op = "<"
	OpLTE Op = "<="
	OpEQ  Op = "=="
)

func (op Op) apply(a, b float64) bool {
	switch op {
	case OpGT:
		return a > b
	case OpGTE:
		return a >= b
	case OpLT:
		return a < b
	case OpLTE:
		return a <= b
	case OpEQ:
		return a == b
	default:
		return false
	}
}

// SubCondition is the second threshold of a correlation condition.
type SubCondition struct {
	Metric string  `yaml:"metric"`
	Op     Op      `yaml:"op"`
	Value  float64 `yaml:"value"`
}

// Condition describes when a rule fires. Fields are interpreted per Kind:
//   - threshold: Metric Op Value on current metrics
//   - consecutive_days: the threshold holds for the most recent Days
//     historical points
//   - decline_percentage: mean of the last Window points is down by at
//     least Percent relative to the prior Window points
//   - correlation: both the main threshold and Second hold simultaneously
//     on current metrics
//   - time_window: wall-clock time is within [Start, End) on a listed
//     weekday (empty Weekdays means every day)
type Condition struct {
	Kind     ConditionKind  `yaml:"kind"`
	Metric   string         `yaml:"metric,omitempty"`
	Op       Op             `yaml:"op,omitempty"`
	Value    float64        `yaml:"value,omitempty"`
	Days     int            `yaml:"days,omitempty"`
	Window   int            `yaml:"window,omitempty"`
	Percent  float64        `yaml:"percent,omitempty"`
	Second   *SubCondition  `yaml:"second,omitempty"`
	Start    string         `yaml:"start,omitempty"` // "HH:MM"
	End      string         `yaml:"end,omitempty"`   // "HH:MM"
	Weekdays []time.Weekday `yaml:"weekdays,omitempty"`
}

// Validate rejects malformed conditions at the boundary.
func (c *Condition) Validate() error {
	switch c.Kind {
	case CondThreshold:
		if c.Metric == "" || c.Op == "" {
			return fmt.Errorf("threshold condition requires metric and op")
		}
	case CondConsecutiveDays:
		if c.Metric == "" || c.Op == "" || c.Days <= 0 {
			return fmt.Errorf("consecutive_days condition requires metric, op and days > 0")
		}
	case CondDecline:
		if c.Metric == "" || c.Window <= 0 || c.Percent <= 0 {
			return fmt.Errorf("decline_percentage condition requires metric, window > 0 and percent > 0")
		}
	case CondCorrelation:
		if c.Metric == "" || c.Op == "" || c.Second == nil || c.Second.Metric == "" {
			return fmt.Errorf("correlation condition requires two metric thresholds")
		}
		if c.Second.Metric == c.Metric {
			return fmt.Errorf("correlation condition requires two different metrics")
		}
	case CondTimeWindow:
		if c.Start == "" || c.End == "" {
			return fmt.Errorf("time_window condition requires start and end")
		}
	default:
		return fmt.Errorf("unknown condition kind: %s", c.Kind)
	}
	return nil
}

// DeliveryMode controls when a notification should be delivered.
type DeliveryMode string

const (
	DeliverImmediate DeliveryMode = "immediate"
	DeliverDelayed   DeliveryMode = "delayed"
	DeliverPreferred DeliveryMode = "preferred"
)

// DeliveryPolicy computes the delivery time for notifications of a rule.
type DeliveryPolicy struct {
	Mode        DeliveryMode  `yaml:"mode"`
	Delay       time.Duration `yaml:"delay,omitempty"`
	WindowStart string        `yaml:"window_start,omitempty"` // "HH:MM"
	WindowEnd   string        `yaml:"window_end,omitempty"`   // "HH:MM"
}

// Action is what a firing rule produces. Title and Message are templates;
// {{metric}}, {{value}} and {{previous}} are substituted at fire time.
type Action struct {
	Title       string         `yaml:"title"`
	Message     string         `yaml:"message"`
	Suggestions []string       `yaml:"suggestions,omitempty"`
	Priority    types.Priority `yaml:"priority"`
	Delivery    DeliveryPolicy `yaml:"delivery"`
}

// Rule maps a condition to an action. Rules are configuration data shared
// across users; per-rule counters are the only mutable state.
type Rule struct {
	ID        string    `yaml:"id"`
	Enabled   bool      `yaml:"enabled"`
	Condition Condition `yaml:"condition"`
	Action    Action    `yaml:"action"`

	triggerCount    int64
	lastTriggeredAt time.Time
}

// RuleStats is a read-only view of a rule's counters.
type RuleStats struct {
	RuleID          string    `json:"rule_id"`
	Enabled         bool      `json:"enabled"`
	TriggerCount    int64     `json:"trigger_count"`
	LastTriggeredAt time.Time `json:"last_triggered_at"`
}
