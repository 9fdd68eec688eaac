package types

import "time"

// Mood is the per-session mood vector. Each dimension is 0-10.
type Mood struct {
	Energy     int `json:"energy"`
	Motivation int `json:"motivation"`
	Stress     int `json:"stress"`
	Confidence int `json:"confidence"`
}

// NeutralMood is the starting mood for a fresh session.
func NeutralMood() Mood {
	return Mood{Energy: 5, Motivation: 5, Stress: 5, Confidence: 5}
}

// MoodUpdate is a partial mood change; nil fields retain prior values.
type MoodUpdate struct {
	Energy     *int `json:"energy,omitempty"`
	Motivation *int `json:"motivation,omitempty"`
	Stress     *int `json:"stress,omitempty"`
	Confidence *int `json:"confidence,omitempty"`
}

// FactorType identifies a kind of contextual observation.
type FactorType string

const (
	FactorWeather  FactorType = "weather"
	FactorStress   FactorType = "stress"
	FactorSchedule FactorType = "schedule"
	FactorSocial   FactorType = "social"
	FactorRecovery FactorType = "recovery"
	FactorTravel   FactorType = "travel"
	FactorIllness  FactorType = "illness"
)

// Polarity describes how a factor influences the user's ability to act on
// coaching advice.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
	PolarityNeutral  Polarity = "neutral"
)

// ContextualFactor is a typed, confidence-weighted observation influencing
// coaching tone. Sessions keep at most one factor per type.
type ContextualFactor struct {
	Type       FactorType `json:"type"`
	Value      string     `json:"value"`
	Impact     Polarity   `json:"impact"`
	Confidence float64    `json:"confidence"`
	ObservedAt time.Time  `json:"observed_at"`
}

// Goal is an active coaching goal.
type Goal struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Metric   string  `json:"metric,omitempty"`
	Target   float64 `json:"target,omitempty"`
	Progress float64 `json:"progress"`
	Active   bool    `json:"active"`
}

// MetricObservation is a data-logging opportunity detected in a user
// message, e.g. "I slept 8 hours" yields (sleep_score, 8).
type MetricObservation struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// TurnMeta is optional structured metadata attached to a turn.
type TurnMeta struct {
	MetricIDs    []string           `json:"metric_ids,omitempty"`
	GoalIDs      []string           `json:"goal_ids,omitempty"`
	Confidence   float64            `json:"confidence,omitempty"`
	Fallback     bool               `json:"fallback,omitempty"`
	LoggedMetric *MetricObservation `json:"logged_metric,omitempty"`
}

// Turn is a single chat turn. Immutable once appended to a session.
type Turn struct {
	ID        string    `json:"id"`
	Sender    Role      `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Meta      *TurnMeta `json:"meta,omitempty"`
}
