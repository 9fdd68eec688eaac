package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfit/coach/pkg/types"
)

func TestPearson(t *testing.T) {
	t.Run("perfect positive", func(t *testing.T) {
		r := Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10})
		assert.InDelta(t, 1.0, r, 1e-9)
	})

	t.Run("perfect negative", func(t *testing.T) {
		r := Pearson([]float64{1, 2, 3, 4, 5}, []float64{10, 8, 6, 4, 2})
		assert.InDelta(t, -1.0, r, 1e-9)
	})

	t.Run("zero variance", func(t *testing.T) {
		assert.Zero(t, Pearson([]float64{3, 3, 3}, []float64{1, 2, 3}))
	})

	t.Run("mismatched or short input", func(t *testing.T) {
		assert.Zero(t, Pearson([]float64{1, 2}, []float64{1}))
		assert.Zero(t, Pearson([]float64{1}, []float64{1}))
	})
}

func TestInsights(t *testing.T) {
	history := map[string][]types.MetricPoint{
		types.MetricSleepScore: series(types.MetricSleepScore, 5, 6, 7, 8, 9, 10),
		types.MetricSteps:      series(types.MetricSteps, 5000, 6000, 7000, 8000, 9000, 10000),
		types.MetricRestingHR:  series(types.MetricRestingHR, 72, 70, 71, 69, 73, 70),
	}

	insights := Insights(history, 0.8)
	require.Len(t, insights, 1)
	assert.Equal(t, types.MetricSleepScore, insights[0].MetricA)
	assert.Equal(t, types.MetricSteps, insights[0].MetricB)
	assert.InDelta(t, 1.0, insights[0].Coefficient, 1e-9)
	assert.Equal(t, 6, insights[0].Samples)

	t.Run("short series skipped", func(t *testing.T) {
		short := map[string][]types.MetricPoint{
			types.MetricSleepScore: series(types.MetricSleepScore, 5, 6, 7),
			types.MetricSteps:      series(types.MetricSteps, 5000, 6000, 7000),
		}
		assert.Empty(t, Insights(short, 0.5))
	})

	t.Run("strongest first", func(t *testing.T) {
		mixed := map[string][]types.MetricPoint{
			"a": series("a", 1, 2, 3, 4, 5, 6),
			"b": series("b", 2, 4, 6, 8, 10, 12),
			"c": series("c", 1, 3, 2, 5, 4, 7),
		}
		all := Insights(mixed, 0.1)
		require.NotEmpty(t, all)
		for i := 1; i < len(all); i++ {
			assert.GreaterOrEqual(t,
				abs(all[i-1].Coefficient), abs(all[i].Coefficient))
		}
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
