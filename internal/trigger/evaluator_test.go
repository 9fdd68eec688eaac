package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfit/coach/pkg/types"
)

func snapshot(values map[string]float64) *types.HealthSnapshot {
	return &types.HealthSnapshot{TakenAt: time.Now(), Values: values}
}

func series(metric string, values ...float64) []types.MetricPoint {
	points := make([]types.MetricPoint, len(values))
	base := time.Now().AddDate(0, 0, -len(values))
	for i, v := range values {
		points[i] = types.MetricPoint{
			Metric:     metric,
			Value:      v,
			RecordedAt: base.AddDate(0, 0, i),
		}
	}
	return points
}

func thresholdRule(id string) Rule {
	return Rule{
		ID:      id,
		Enabled: true,
		Condition: Condition{
			Kind:   CondThreshold,
			Metric: types.MetricSleepScore,
			Op:     OpLT,
			Value:  6,
		},
		Action: Action{
			Title:    "Low sleep",
			Message:  "Your {{metric}} is {{value}}",
			Priority: types.PriorityNormal,
			Delivery: DeliveryPolicy{Mode: DeliverImmediate},
		},
	}
}

func newTestEvaluator(t *testing.T, cfg Config) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(cfg)
	require.NoError(t, err)
	return e
}

func TestEvaluator_Threshold(t *testing.T) {
	e := newTestEvaluator(t, Config{Rules: []Rule{thresholdRule("r1")}})

	t.Run("fires below threshold", func(t *testing.T) {
		ns := e.Evaluate("u1", snapshot(map[string]float64{types.MetricSleepScore: 4.5}), nil)
		require.Len(t, ns, 1)
		assert.Equal(t, "r1", ns[0].RuleID)
		assert.Equal(t, "Your sleep_score is 4.5", ns[0].Message)
		assert.Equal(t, 4.5, ns[0].CurrentValue)

		stats, ok := e.Stats("r1")
		require.True(t, ok)
		assert.Equal(t, int64(1), stats.TriggerCount)
		assert.False(t, stats.LastTriggeredAt.IsZero())
	})

	t.Run("quiet above threshold", func(t *testing.T) {
		ns := e.Evaluate("u1", snapshot(map[string]float64{types.MetricSleepScore: 7}), nil)
		assert.Empty(t, ns)
	})

	t.Run("quiet when metric missing", func(t *testing.T) {
		ns := e.Evaluate("u1", snapshot(map[string]float64{}), nil)
		assert.Empty(t, ns)
	})
}

func TestEvaluator_DisabledRule(t *testing.T) {
	rule := thresholdRule("r1")
	rule.Enabled = false
	e := newTestEvaluator(t, Config{Rules: []Rule{rule}})

	ns := e.Evaluate("u1", snapshot(map[string]float64{types.MetricSleepScore: 3}), nil)
	assert.Empty(t, ns)

	require.True(t, e.SetEnabled("r1", true))
	ns = e.Evaluate("u1", snapshot(map[string]float64{types.MetricSleepScore: 3}), nil)
	assert.Len(t, ns, 1)
}

func TestEvaluator_ConsecutiveDays(t *testing.T) {
	rule := Rule{
		ID:      "r1",
		Enabled: true,
		Condition: Condition{
			Kind:   CondConsecutiveDays,
			Metric: types.MetricSleepScore,
			Op:     OpLT,
			Value:  6,
			Days:   3,
		},
		Action: Action{Title: "t", Message: "m", Priority: types.PriorityNormal},
	}
	e := newTestEvaluator(t, Config{Rules: []Rule{rule}})

	t.Run("fires when all recent points satisfy", func(t *testing.T) {
		history := map[string][]types.MetricPoint{
			types.MetricSleepScore: series(types.MetricSleepScore, 7, 8, 5, 5.5, 4),
		}
		ns := e.Evaluate("u1", nil, history)
		require.Len(t, ns, 1)
		assert.Equal(t, 4.0, ns[0].CurrentValue)
		assert.Equal(t, 5.0, ns[0].PreviousValue)
	})

	t.Run("one violating point prevents firing", func(t *testing.T) {
		history := map[string][]types.MetricPoint{
			types.MetricSleepScore: series(types.MetricSleepScore, 7, 8, 5, 6.5, 4),
		}
		assert.Empty(t, e.Evaluate("u1", nil, history))
	})

	t.Run("insufficient history", func(t *testing.T) {
		history := map[string][]types.MetricPoint{
			types.MetricSleepScore: series(types.MetricSleepScore, 4, 4),
		}
		assert.Empty(t, e.Evaluate("u1", nil, history))
	})
}

func TestEvaluator_DeclinePercentage(t *testing.T) {
	rule := Rule{
		ID:      "r1",
		Enabled: true,
		Condition: Condition{
			Kind:    CondDecline,
			Metric:  types.MetricSteps,
			Window:  3,
			Percent: 0.2,
		},
		Action: Action{Title: "t", Message: "m", Priority: types.PriorityNormal},
	}
	e := newTestEvaluator(t, Config{Rules: []Rule{rule}})

	t.Run("fires on 25 percent decline", func(t *testing.T) {
		// Prior window mean 10000, recent window mean 7500.
		history := map[string][]types.MetricPoint{
			types.MetricSteps: series(types.MetricSteps, 10000, 10000, 10000, 7500, 7500, 7500),
		}
		ns := e.Evaluate("u1", nil, history)
		require.Len(t, ns, 1)
		assert.Equal(t, 7500.0, ns[0].CurrentValue)
		assert.Equal(t, 10000.0, ns[0].PreviousValue)
	})

	t.Run("quiet on mild decline", func(t *testing.T) {
		history := map[string][]types.MetricPoint{
			types.MetricSteps: series(types.MetricSteps, 10000, 10000, 10000, 9500, 9500, 9500),
		}
		assert.Empty(t, e.Evaluate("u1", nil, history))
	})
}

func TestEvaluator_Correlation(t *testing.T) {
	rule := Rule{
		ID:      "r1",
		Enabled: true,
		Condition: Condition{
			Kind:   CondCorrelation,
			Metric: types.MetricSleepScore,
			Op:     OpLT,
			Value:  6,
			Second: &SubCondition{Metric: types.MetricRestingHR, Op: OpGT, Value: 70},
		},
		Action: Action{Title: "t", Message: "m", Priority: types.PriorityNormal},
	}
	e := newTestEvaluator(t, Config{Rules: []Rule{rule}})

	t.Run("both conditions hold", func(t *testing.T) {
		ns := e.Evaluate("u1", snapshot(map[string]float64{
			types.MetricSleepScore: 5,
			types.MetricRestingHR:  75,
		}), nil)
		assert.Len(t, ns, 1)
	})

	t.Run("one condition fails", func(t *testing.T) {
		ns := e.Evaluate("u1", snapshot(map[string]float64{
			types.MetricSleepScore: 5,
			types.MetricRestingHR:  65,
		}), nil)
		assert.Empty(t, ns)
	})
}

func TestEvaluator_TimeWindow(t *testing.T) {
	rule := Rule{
		ID:      "r1",
		Enabled: true,
		Condition: Condition{
			Kind:  CondTimeWindow,
			Start: "08:00",
			End:   "10:00",
		},
		Action: Action{Title: "t", Message: "m", Priority: types.PriorityNormal},
	}
	e := newTestEvaluator(t, Config{Rules: []Rule{rule}})

	at := func(hour int) func() time.Time {
		return func() time.Time {
			return time.Date(2026, 3, 2, hour, 30, 0, 0, time.UTC)
		}
	}

	e.now = at(8)
	assert.Len(t, e.Evaluate("u1", nil, nil), 1)

	e.now = at(11)
	assert.Empty(t, e.Evaluate("u1", nil, nil))
}

func TestEvaluator_DailyCap(t *testing.T) {
	e := newTestEvaluator(t, Config{Rules: []Rule{thresholdRule("r1")}, DailyCap: 3})

	low := snapshot(map[string]float64{types.MetricSleepScore: 3})
	delivered := 0
	for i := 0; i < 6; i++ {
		delivered += len(e.Evaluate("u1", low, nil))
	}
	assert.Equal(t, 3, delivered, "cap should silently suppress the rest")

	// Counters still advance for suppressed firings.
	stats, _ := e.Stats("r1")
	assert.Equal(t, int64(6), stats.TriggerCount)

	// Another user has an independent budget.
	assert.Len(t, e.Evaluate("u2", low, nil), 1)
}

func TestEvaluator_UrgentBypassesCap(t *testing.T) {
	urgent := thresholdRule("urgent")
	urgent.Action.Priority = types.PriorityUrgent
	e := newTestEvaluator(t, Config{Rules: []Rule{thresholdRule("r1"), urgent}, DailyCap: 1})

	low := snapshot(map[string]float64{types.MetricSleepScore: 3})
	for i := 0; i < 5; i++ {
		ns := e.Evaluate("u1", low, nil)
		urgentSeen := false
		for _, n := range ns {
			if n.RuleID == "urgent" {
				urgentSeen = true
			}
		}
		assert.True(t, urgentSeen, "urgent notifications always pass (round %d)", i)
	}
}

func TestNewEvaluator_RejectsInvalidRules(t *testing.T) {
	_, err := NewEvaluator(Config{Rules: []Rule{{
		ID:        "bad",
		Condition: Condition{Kind: CondThreshold},
	}}})
	assert.Error(t, err)

	_, err = NewEvaluator(Config{Rules: []Rule{{
		ID:        "bad2",
		Condition: Condition{Kind: "mystery"},
	}}})
	assert.Error(t, err)
}
