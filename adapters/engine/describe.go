package engine

import (
	"metasens/domain/core"

	"github.com/montanaflynn/stats"
)

// EffectSummary holds descriptive statistics of the per-study effect sizes
type EffectSummary struct {
	K      int     `json:"k"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// DescribeEffects computes a descriptive summary of a set of effect sizes
func DescribeEffects(yi []float64) (EffectSummary, error) {
	if len(yi) == 0 {
		return EffectSummary{}, core.NewInsufficientDataError("no effect sizes to describe")
	}

	mean, _ := stats.Mean(yi)
	median, _ := stats.Median(yi)
	stdDev, _ := stats.StandardDeviation(yi)
	min, _ := stats.Min(yi)
	max, _ := stats.Max(yi)

	return EffectSummary{
		K:      len(yi),
		Mean:   mean,
		Median: median,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
	}, nil
}

// EffectSummary describes the model's own study effects
func (m *Model) EffectSummary() (EffectSummary, error) {
	return DescribeEffects(m.yi)
}
