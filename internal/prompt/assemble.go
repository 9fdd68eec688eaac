package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emberfit/coach/internal/session"
	"github.com/emberfit/coach/pkg/types"
)

const (
	// historyWindow is how many prior turns are replayed verbatim.
	historyWindow = 10
	topGoals      = 3
	topFactors    = 5
)

// responseConstraints is appended to every system message.
const responseConstraints = `Response constraints:
- Keep answers under 120 words and actionable.
- Reference the user's own data when relevant.
- Suggest at most three concrete next steps.
- Never provide a medical diagnosis; recommend a professional for health concerns.`

var guidelines = map[types.Category]string{
	types.CategoryGeneral:       "You are a supportive personal health coach. Keep the conversation practical and encouraging.",
	types.CategoryWorkout:       "You are a fitness coach. Tailor exercise advice to the user's recent activity and recovery state.",
	types.CategoryNutrition:     "You are a nutrition coach. Give specific, realistic food guidance; avoid fad framing.",
	types.CategorySleep:         "You are a sleep coach. Focus on sleep hygiene and consistency, grounded in the user's sleep data.",
	types.CategoryGoalSetting:   "You are a goal-setting coach. Help shape specific, measurable, achievable goals.",
	types.CategoryProgress:      "You are a progress coach. Highlight trends in the user's data and celebrate real wins.",
	types.CategoryMotivation:    "You are a motivation coach. Acknowledge difficulty, then redirect to one small next action.",
	types.CategoryHabit:         "You are a habit coach. Emphasize small, repeatable actions and streak preservation.",
	types.CategoryHealthConcern: "The user may have a health concern. Be calm and careful, and recommend professional care when symptoms warrant it.",
}

// Assemble renders the ordered prompt: one system message, the last ten
// history turns verbatim, then the current user message. Message order is
// significant; the cache key depends on it.
func Assemble(category types.Category, ctx *session.Context, metrics *types.HealthSnapshot, userMessage string) []types.Message {
	messages := make([]types.Message, 0, historyWindow+2)
	messages = append(messages, types.Message{
		Role:    types.RoleSystem,
		Content: systemMessage(category, ctx, metrics),
	})

	for _, turn := range ctx.LastTurns(historyWindow) {
		messages = append(messages, types.Message{
			Role:    turn.Sender,
			Content: turn.Content,
		})
	}

	messages = append(messages, types.Message{
		Role:    types.RoleUser,
		Content: userMessage,
	})

	return messages
}

func systemMessage(category types.Category, ctx *session.Context, metrics *types.HealthSnapshot) string {
	var sb strings.Builder

	guideline, ok := guidelines[category]
	if !ok {
		guideline = guidelines[types.CategoryGeneral]
	}
	sb.WriteString(guideline)

	if block := FormatMetrics(metrics); block != "" {
		sb.WriteString("\n\n")
		sb.WriteString(block)
	}
	if block := FormatGoals(ctx.ActiveGoals(topGoals)); block != "" {
		sb.WriteString("\n\n")
		sb.WriteString(block)
	}
	if block := FormatFactors(ctx.TopFactors(topFactors)); block != "" {
		sb.WriteString("\n\n")
		sb.WriteString(block)
	}

	sb.WriteString("\n\n")
	sb.WriteString(FormatSessionSummary(ctx))
	sb.WriteString("\n\n")
	sb.WriteString(responseConstraints)

	return sb.String()
}

// FormatMetrics renders the current health snapshot, keys sorted for
// deterministic output.
func FormatMetrics(metrics *types.HealthSnapshot) string {
	if metrics == nil || len(metrics.Values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(metrics.Values))
	for k := range metrics.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("Current health metrics:")
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("\n- %s: %g", k, metrics.Values[k]))
	}
	return sb.String()
}

// FormatGoals renders up to the top three active goals.
func FormatGoals(goals []types.Goal) string {
	if len(goals) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Active goals:")
	for _, g := range goals {
		sb.WriteString(fmt.Sprintf("\n- %s (%.0f%% complete)", g.Title, g.Progress*100))
	}
	return sb.String()
}

// FormatFactors renders contextual factors ordered by confidence.
func FormatFactors(factors []types.ContextualFactor) string {
	if len(factors) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Contextual factors:")
	for _, f := range factors {
		sb.WriteString(fmt.Sprintf("\n- %s: %s (%s impact, confidence %.2f)",
			f.Type, f.Value, f.Impact, f.Confidence))
	}
	return sb.String()
}

// FormatSessionSummary renders a one-line session digest.
func FormatSessionSummary(ctx *session.Context) string {
	return fmt.Sprintf("Session: topic=%s, turns=%d, duration=%.0f min, mood(energy=%d motivation=%d stress=%d confidence=%d)",
		ctx.Topic, len(ctx.History), ctx.DurationMinutes,
		ctx.Mood.Energy, ctx.Mood.Motivation, ctx.Mood.Stress, ctx.Mood.Confidence)
}
