package types

import "time"

// Category is a coaching topic bucket used for classification, prompt
// templates, and cache metadata.
type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryWorkout       Category = "workout"
	CategoryNutrition     Category = "nutrition"
	CategorySleep         Category = "sleep"
	CategoryGoalSetting   Category = "goal_setting"
	CategoryProgress      Category = "progress"
	CategoryMotivation    Category = "motivation"
	CategoryHabit         Category = "habit"
	CategoryHealthConcern Category = "health_concern"
)

// Response is a coaching reply returned to the caller. Fallback responses
// share this shape; only Confidence and Fallback differ, so UI layers need
// no special-casing.
type Response struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Category    Category  `json:"category"`
	Confidence  float64   `json:"confidence"`
	Fallback    bool      `json:"fallback,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	TokensUsed  int       `json:"tokens_used,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
