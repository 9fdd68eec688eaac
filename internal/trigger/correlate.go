package trigger

import (
	"math"
	"sort"

	"github.com/emberfit/coach/pkg/types"
)

// Insight is a statistically notable relationship between two metrics,
// surfaced for proactive coaching ("your sleep tracks your step count").
type Insight struct {
	MetricA     string  `json:"metric_a"`
	MetricB     string  `json:"metric_b"`
	Coefficient float64 `json:"coefficient"`
	Samples     int     `json:"samples"`
}

// minInsightSamples guards against spurious correlations on tiny windows.
const minInsightSamples = 5

// Pearson computes the Pearson correlation coefficient of two equal-length
// series. Returns 0 for mismatched, short, or zero-variance inputs.
func Pearson(a, b []float64) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return 0
	}

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
	}
	meanA := sumA / float64(n)
	meanB := sumB / float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}

	return cov / math.Sqrt(varA*varB)
}

// Insights computes pairwise Pearson correlations across metric histories
// and returns pairs whose |r| meets minAbs, strongest first. Series are
// aligned on their most recent overlapping samples.
func Insights(history map[string][]types.MetricPoint, minAbs float64) []Insight {
	metrics := make([]string, 0, len(history))
	for m := range history {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	var out []Insight
	for i := 0; i < len(metrics); i++ {
		for j := i + 1; j < len(metrics); j++ {
			a, b := history[metrics[i]], history[metrics[j]]
			n := len(a)
			if len(b) < n {
				n = len(b)
			}
			if n < minInsightSamples {
				continue
			}

			r := Pearson(values(a[len(a)-n:]), values(b[len(b)-n:]))
			if math.Abs(r) >= minAbs {
				out = append(out, Insight{
					MetricA:     metrics[i],
					MetricB:     metrics[j],
					Coefficient: r,
					Samples:     n,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Coefficient) > math.Abs(out[j].Coefficient)
	})
	return out
}

func values(points []types.MetricPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
