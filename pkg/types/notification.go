package types

import "time"

// Priority orders proactive notifications. Urgent notifications bypass the
// per-user delivery cap.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is a proactive coaching message produced by the trigger
// evaluator and consumed by an external delivery channel.
type Notification struct {
	ID            string    `json:"id"`
	RuleID        string    `json:"rule_id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Actions       []string  `json:"actions,omitempty"`
	Priority      Priority  `json:"priority"`
	Metric        string    `json:"metric,omitempty"`
	CurrentValue  float64   `json:"current_value,omitempty"`
	PreviousValue float64   `json:"previous_value,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	DeliverAt     time.Time `json:"deliver_at"`
}
