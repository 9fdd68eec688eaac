package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfit/coach/internal/session"
	"github.com/emberfit/coach/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		topic   types.Category
		want    types.Category
	}{
		{"workout keywords", "how should I structure my workout", "", types.CategoryWorkout},
		{"sleep keywords", "I slept 8 hours last night", "", types.CategorySleep},
		{"nutrition keywords", "what should I eat before lifting", "", types.CategoryNutrition},
		{"health concern outranks workout", "my chest hurts during exercise", "", types.CategoryHealthConcern},
		{"workout outranks motivation", "I'm stressed about my workout", "", types.CategoryWorkout},
		{"goal setting", "I want to set a new target", "", types.CategoryGoalSetting},
		{"habit", "help me build a morning routine", "", types.CategoryHabit},
		{"falls back to current topic", "thanks, tell me more", types.CategorySleep, types.CategorySleep},
		{"falls back to general", "thanks, tell me more", "", types.CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message, tt.topic))
		})
	}
}

func testContext() *session.Context {
	now := time.Now()
	ctx := &session.Context{
		UserID:    "u1",
		SessionID: "s1",
		Topic:     types.CategorySleep,
		Mood:      types.NeutralMood(),
		CreatedAt: now,
	}
	for i := 0; i < 14; i++ {
		sender := types.RoleUser
		if i%2 == 1 {
			sender = types.RoleAssistant
		}
		ctx.History = append(ctx.History, types.Turn{
			ID:        fmt.Sprintf("t-%d", i),
			Sender:    sender,
			Content:   fmt.Sprintf("turn-%d", i),
			Timestamp: now.Add(time.Duration(i) * time.Minute),
		})
	}
	return ctx
}

func TestAssemble(t *testing.T) {
	ctx := testContext()
	ctx.Goals = []types.Goal{
		{ID: "g1", Title: "Sleep 8 hours", Progress: 0.6, Active: true},
		{ID: "g2", Title: "Run 5k", Progress: 0.2, Active: true},
	}
	ctx.Factors = []types.ContextualFactor{
		{Type: types.FactorWeather, Value: "rainy", Impact: types.PolarityNegative, Confidence: 0.6},
		{Type: types.FactorStress, Value: "high workload", Impact: types.PolarityNegative, Confidence: 0.9},
	}
	metrics := &types.HealthSnapshot{Values: map[string]float64{
		types.MetricSleepScore: 6.5,
		types.MetricSteps:      9000,
	}}

	messages := Assemble(types.CategorySleep, ctx, metrics, "how can I sleep better?")

	// System + last 10 turns + user message.
	require.Len(t, messages, 12)
	assert.Equal(t, types.RoleSystem, messages[0].Role)
	assert.Equal(t, types.RoleUser, messages[len(messages)-1].Role)
	assert.Equal(t, "how can I sleep better?", messages[len(messages)-1].Content)

	// Only the last 10 history turns, verbatim and in order.
	assert.Equal(t, "turn-4", messages[1].Content)
	assert.Equal(t, "turn-13", messages[10].Content)

	system := messages[0].Content
	assert.Contains(t, system, "sleep coach")
	assert.Contains(t, system, "sleep_score: 6.5")
	assert.Contains(t, system, "Sleep 8 hours (60% complete)")
	assert.Contains(t, system, "stress: high workload")
	assert.Contains(t, system, "topic=sleep")
	assert.Contains(t, system, "Response constraints:")
}

func TestAssemble_Deterministic(t *testing.T) {
	ctx := testContext()
	metrics := &types.HealthSnapshot{Values: map[string]float64{
		"b_metric": 2, "a_metric": 1, "c_metric": 3,
	}}

	first := Assemble(types.CategoryGeneral, ctx, metrics, "hi")
	second := Assemble(types.CategoryGeneral, ctx, metrics, "hi")

	assert.Equal(t, first, second)
}

func TestFormatFactors_Order(t *testing.T) {
	ctx := testContext()
	ctx.Factors = []types.ContextualFactor{
		{Type: types.FactorWeather, Value: "cold", Confidence: 0.3},
		{Type: types.FactorStress, Value: "deadline", Confidence: 0.9},
		{Type: types.FactorSchedule, Value: "busy week", Confidence: 0.7},
	}

	block := FormatFactors(ctx.TopFactors(5))
	stressIdx := strings.Index(block, "stress")
	scheduleIdx := strings.Index(block, "schedule")
	weatherIdx := strings.Index(block, "weather")

	assert.True(t, stressIdx < scheduleIdx && scheduleIdx < weatherIdx,
		"factors should be ordered by confidence, got:\n%s", block)
}
