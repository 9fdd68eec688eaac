// Package prompt classifies messages into coaching categories and renders
// the ordered message sequence sent to the completion provider. Everything
// here is a pure function of its inputs so prompt hashing stays stable.
package prompt

import (
	"strings"

	"github.com/emberfit/coach/pkg/types"
)

// categoryRule binds a category to its defining keywords. Rules are
// evaluated in declaration order and the first match wins. The order is
// the fixed precedence: health-concern outranks everything, then
// workout > nutrition > sleep > goal-setting > progress > motivation >
// habit.
type categoryRule struct {
	category types.Category
	keywords []string
}

var categoryRules = []categoryRule{
	{types.CategoryHealthConcern, []string{"pain", "hurt", "injury", "injured", "dizzy", "sick", "chest", "faint", "nausea"}},
	{types.CategoryWorkout, []string{"workout", "exercise", "training", "gym", "run", "lift", "cardio", "fitness"}},
	{types.CategoryNutrition, []string{"nutrition", "food", "meal", "eat", "diet", "protein", "calorie", "snack"}},
	{types.CategorySleep, []string{"sleep", "slept", "tired", "rest", "insomnia", "nap", "bedtime"}},
	{types.CategoryGoalSetting, []string{"goal", "target", "aim", "plan", "milestone"}},
	{types.CategoryProgress, []string{"progress", "improve", "improving", "better", "results", "streak"}},
	{types.CategoryMotivation, []string{"motivat", "inspire", "give up", "discouraged", "lazy", "stuck"}},
	{types.CategoryHabit, []string{"habit", "routine", "consistent", "daily", "every day"}},
}

// Classify returns the coaching category for a message. When no keyword
// set matches it falls back to the session's current topic, then to the
// general category.
func Classify(message string, currentTopic types.Category) types.Category {
	lower := strings.ToLower(message)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	if currentTopic != "" {
		return currentTopic
	}
	return types.CategoryGeneral
}
