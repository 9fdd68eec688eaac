package session

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/emberfit/coach/pkg/types"
)

// topicRule maps sub-context keywords to a topic. Rules are evaluated in
// declaration order; the first match wins. Priority: workout > nutrition >
// sleep.
type topicRule struct {
	topic    types.Category
	keywords []string
}

var topicRules = []topicRule{
	{types.CategoryWorkout, []string{"workout", "exercise", "training", "gym", "run", "lift", "cardio"}},
	{types.CategoryNutrition, []string{"nutrition", "food", "meal", "eat", "diet", "protein", "calorie"}},
	{types.CategorySleep, []string{"sleep", "slept", "tired", "rest", "nap", "insomnia"}},
}

// ReclassifyTopic scans a user message for sub-context hints and returns
// the new topic. The second return value is false when no rule matches,
// in which case the current topic is kept.
func ReclassifyTopic(message string) (types.Category, bool) {
	lower := strings.ToLower(message)
	for _, rule := range topicRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.topic, true
			}
		}
	}
	return "", false
}

// Data-logging patterns. Each maps a phrasing to a metric id; the first
// capture group is the numeric value.
var metricPatterns = []struct {
	metric string
	re     *regexp.Regexp
}{
	{types.MetricSleepScore, regexp.MustCompile(`(?i)slept\s+(\d+(?:\.\d+)?)\s+hours?`)},
	{types.MetricSleepScore, regexp.MustCompile(`(?i)got\s+(\d+(?:\.\d+)?)\s+hours?\s+of\s+sleep`)},
	{types.MetricSteps, regexp.MustCompile(`(?i)walked\s+(\d+)\s+steps`)},
	{types.MetricWeight, regexp.MustCompile(`(?i)weigh(?:ed)?\s+(\d+(?:\.\d+)?)\s*(?:kg|lbs?)`)},
}

// DetectMetricObservation finds a data-logging opportunity in a user
// message, e.g. "I slept 8 hours last night" yields (sleep_score, 8).
// Returns nil when no pattern matches.
func DetectMetricObservation(message string) *types.MetricObservation {
	for _, p := range metricPatterns {
		if m := p.re.FindStringSubmatch(message); m != nil {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			return &types.MetricObservation{Metric: p.metric, Value: value}
		}
	}
	return nil
}
