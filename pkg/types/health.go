package types

import "time"

// Well-known metric identifiers supplied by the health-metrics provider.
const (
	MetricSleepScore    = "sleep_score"
	MetricRestingHR     = "resting_hr"
	MetricSteps         = "steps"
	MetricActiveMinutes = "active_minutes"
	MetricHRV           = "hrv"
	MetricWeight        = "weight"
)

// HealthSnapshot is the current metric state for a user, consumed
// read-only by the trigger evaluator and prompt assembler.
type HealthSnapshot struct {
	TakenAt time.Time          `json:"taken_at"`
	Values  map[string]float64 `json:"values"`
}

// Value returns a metric value and whether it is present.
func (s *HealthSnapshot) Value(metric string) (float64, bool) {
	if s == nil || s.Values == nil {
		return 0, false
	}
	v, ok := s.Values[metric]
	return v, ok
}

// MetricPoint is a single historical metric sample. History is ordered
// oldest first.
type MetricPoint struct {
	Metric     string    `json:"metric"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}
