package trigger

import (
	"time"

	"github.com/emberfit/coach/pkg/types"
)

// evalCondition evaluates one condition and returns whether it fired plus
// the current and previous values to report in the notification.
func evalCondition(c *Condition, now time.Time, current *types.HealthSnapshot, history map[string][]types.MetricPoint) (fired bool, cur, prev float64) {
	switch c.Kind {
	case CondThreshold:
		return evalThreshold(c, current)
	case CondConsecutiveDays:
		return evalConsecutiveDays(c, history)
	case CondDecline:
		return evalDecline(c, history)
	case CondCorrelation:
		return evalCorrelation(c, current)
	case CondTimeWindow:
		return evalTimeWindow(c, now), 0, 0
	default:
		return false, 0, 0
	}
}

func evalThreshold(c *Condition, current *types.HealthSnapshot) (bool, float64, float64) {
	v, ok := current.Value(c.Metric)
	if !ok {
		return false, 0, 0
	}
	return c.Op.apply(v, c.Value), v, 0
}

// evalConsecutiveDays fires iff all of the most recent Days points satisfy
// the threshold. History is ordered oldest first.
func evalConsecutiveDays(c *Condition, history map[string][]types.MetricPoint) (bool, float64, float64) {
	points := history[c.Metric]
	if len(points) < c.Days {
		return false, 0, 0
	}

	recent := points[len(points)-c.Days:]
	for _, p := range recent {
		if !c.Op.apply(p.Value, c.Value) {
			return false, 0, 0
		}
	}
	return true, recent[len(recent)-1].Value, recent[0].Value
}

// evalDecline compares the mean of the most recent Window points against
// the mean of the prior Window points and fires when the relative decline
// meets the configured magnitude.
func evalDecline(c *Condition, history map[string][]types.MetricPoint) (bool, float64, float64) {
	points := history[c.Metric]
	if len(points) < 2*c.Window {
		return false, 0, 0
	}

	recent := mean(points[len(points)-c.Window:])
	prior := mean(points[len(points)-2*c.Window : len(points)-c.Window])
	if prior <= 0 {
		return false, recent, prior
	}

	decline := (prior - recent) / prior
	return decline >= c.Percent, recent, prior
}

// evalCorrelation fires when both threshold sub-conditions on two
// different metrics hold simultaneously.
func evalCorrelation(c *Condition, current *types.HealthSnapshot) (bool, float64, float64) {
	a, okA := current.Value(c.Metric)
	b, okB := current.Value(c.Second.Metric)
	if !okA || !okB {
		return false, 0, 0
	}
	fired := c.Op.apply(a, c.Value) && c.Second.Op.apply(b, c.Second.Value)
	return fired, a, b
}

func evalTimeWindow(c *Condition, now time.Time) bool {
	if len(c.Weekdays) > 0 {
		match := false
		for _, d := range c.Weekdays {
			if now.Weekday() == d {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return inClockWindow(now, c.Start, c.End)
}

func mean(points []types.MetricPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}
