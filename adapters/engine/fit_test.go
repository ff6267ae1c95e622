package engine

import (
	"math"
	"testing"

	"metasens/domain/meta"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evenModel(t *testing.T) *Model {
	t.Helper()
	m, err := Fit([]string{"A", "B", "C"}, []float64{1, 2, 3}, []float64{1, 1, 1}, FitOptions{})
	require.NoError(t, err)
	return m
}

func TestFitValidation(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		yi, vi []float64
		opts   FitOptions
	}{
		{"too few studies", []string{"A"}, []float64{1}, []float64{1}, FitOptions{}},
		{"length mismatch", []string{"A", "B"}, []float64{1, 2}, []float64{1}, FitOptions{}},
		{"zero variance", []string{"A", "B"}, []float64{1, 2}, []float64{1, 0}, FitOptions{}},
		{"negative variance", []string{"A", "B"}, []float64{1, 2}, []float64{1, -1}, FitOptions{}},
		{"bad conf level", []string{"A", "B"}, []float64{1, 2}, []float64{1, 1}, FitOptions{ConfLevel: 1.5}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Fit(test.labels, test.yi, test.vi, test.opts)
			assert.Error(t, err)
		})
	}
}

func TestHomogeneousPooling(t *testing.T) {
	m := evenModel(t)
	r := m.Result()

	// Equal unit variances: plain mean, se = sqrt(1/3)
	assert.InDelta(t, 2.0, r.Estimate, 1e-12)
	assert.InDelta(t, math.Sqrt(1.0/3.0), r.StdError, 1e-12)

	// Q = 2 on 2 df; no excess heterogeneity, so DL collapses to fixed effects
	assert.InDelta(t, 2.0, r.Q, 1e-12)
	assert.InDelta(t, 0.0, r.Tau2, 1e-12)
	assert.InDelta(t, 0.0, r.I2, 1e-12)
	assert.InDelta(t, 1.0, r.H2, 1e-12)

	// 95% Wald interval
	assert.InDelta(t, 2.0-1.959964*r.StdError, r.ConfLow, 1e-5)
	assert.InDelta(t, 2.0+1.959964*r.StdError, r.ConfHigh, 1e-5)
	assert.Equal(t, 3, r.K)
}

func TestDLDetectsHeterogeneity(t *testing.T) {
	m, err := Fit([]string{"A", "B"}, []float64{0, 1}, []float64{0.1, 0.1}, FitOptions{Method: MethodDL})
	require.NoError(t, err)
	r := m.Result()

	// Q = 5 on 1 df; C = 10, so tau^2 = (5-1)/10 = 0.4
	assert.InDelta(t, 5.0, r.Q, 1e-12)
	assert.InDelta(t, 0.4, r.Tau2, 1e-12)
	assert.Greater(t, r.I2, 50.0)

	// Random-effects se is wider than the fixed-effects one
	fixed, err := Fit([]string{"A", "B"}, []float64{0, 1}, []float64{0.1, 0.1}, FitOptions{Method: MethodFixed})
	require.NoError(t, err)
	assert.Equal(t, 0.0, fixed.Result().Tau2)
	assert.Greater(t, r.StdError, fixed.Result().StdError)
}

func TestSlabReturnsCopy(t *testing.T) {
	m := evenModel(t)
	slab := m.Slab()
	slab[0] = "mutated"
	assert.Equal(t, []string{"A", "B", "C"}, m.Slab())
}

func TestLeaveOneOutDiagnostics(t *testing.T) {
	m := evenModel(t)

	diags, err := m.LeaveOneOut(meta.RefitRequest{})
	require.NoError(t, err)
	require.Len(t, diags, 3)

	// Slab order preserved
	assert.Equal(t, "A", diags[0].Study)
	assert.Equal(t, "B", diags[1].Study)
	assert.Equal(t, "C", diags[2].Study)

	// Dropping A pools {2, 3}; dropping B pools {1, 3}
	assert.InDelta(t, 2.5, diags[0].Estimate, 1e-12)
	assert.InDelta(t, 2.0, diags[1].Estimate, 1e-12)
	assert.InDelta(t, 1.5, diags[2].Estimate, 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), diags[0].StdError, 1e-12)
}

func TestCumulativeRefitNativeOrder(t *testing.T) {
	m := evenModel(t)

	diags, err := m.CumulativeRefit(meta.RefitRequest{})
	require.NoError(t, err)
	require.Len(t, diags, 3)

	// First step pools only study A
	assert.Equal(t, "A", diags[0].Study)
	assert.InDelta(t, 1.0, diags[0].Estimate, 1e-12)
	assert.InDelta(t, 1.0, diags[0].StdError, 1e-12)

	// Second step pools {1, 2}, final step matches the full fit
	assert.InDelta(t, 1.5, diags[1].Estimate, 1e-12)
	assert.InDelta(t, m.Result().Estimate, diags[2].Estimate, 1e-12)
}

func TestCumulativeRefitExplicitOrder(t *testing.T) {
	m := evenModel(t)

	diags, err := m.CumulativeRefit(meta.RefitRequest{Order: []int{3, 1, 2}})
	require.NoError(t, err)

	assert.Equal(t, "C", diags[0].Study)
	assert.InDelta(t, 3.0, diags[0].Estimate, 1e-12)
	assert.Equal(t, "A", diags[1].Study)
	assert.InDelta(t, 2.0, diags[1].Estimate, 1e-12)
	assert.Equal(t, "B", diags[2].Study)
}

func TestCumulativeRefitRejectsBadOrders(t *testing.T) {
	m := evenModel(t)

	for name, order := range map[string][]int{
		"short":        {1, 2},
		"out of range": {1, 2, 4},
		"zero":         {0, 1, 2},
		"duplicate":    {1, 1, 2},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.CumulativeRefit(meta.RefitRequest{Order: order})
			assert.Error(t, err)
		})
	}
}

func TestTidySummaryShape(t *testing.T) {
	m := evenModel(t)

	summary, err := m.TidySummary(meta.TidyOptions{ConfInt: true})
	require.NoError(t, err)
	require.Len(t, summary.Rows, 1)

	row := summary.Rows[0]
	assert.Equal(t, "Overall", row[meta.ColStudy])
	assert.Equal(t, meta.TypeSummary, row[meta.ColType])
	assert.InDelta(t, 2.0, row[meta.ColEstimate].(float64), 1e-12)
	assert.True(t, summary.HasColumn(meta.ColConfLow))

	// The model rides along with its tidy output
	recovered, err := meta.ExtractModel(summary)
	require.NoError(t, err)
	assert.Equal(t, m.Slab(), recovered.Slab())
}

func TestTidySummaryIncludeStudies(t *testing.T) {
	m := evenModel(t)

	table, err := m.TidySummary(meta.TidyOptions{ConfInt: true, IncludeStudies: true})
	require.NoError(t, err)
	require.Len(t, table.Rows, 4)

	assert.Equal(t, meta.TypeStudy, table.Rows[0][meta.ColType])
	assert.InDelta(t, 1.0, table.Rows[0][meta.ColEstimate].(float64), 1e-12)
	assert.Equal(t, meta.TypeSummary, table.Rows[3][meta.ColType])
}

func TestTidySummaryGlanceAndTransforms(t *testing.T) {
	m := evenModel(t)

	glanced, err := m.TidySummary(meta.TidyOptions{ConfInt: true, Glance: true})
	require.NoError(t, err)
	for _, col := range []string{meta.ColQ, meta.ColQP, meta.ColTauSquared, meta.ColISquared, meta.ColHSquared} {
		assert.True(t, glanced.HasColumn(col), "missing %s", col)
	}

	noCI, err := m.TidySummary(meta.TidyOptions{ConfInt: false})
	require.NoError(t, err)
	assert.False(t, noCI.HasColumn(meta.ColConfLow))
	assert.False(t, noCI.HasColumn(meta.ColConfHigh))

	exp, err := m.TidySummary(meta.TidyOptions{ConfInt: true, Exponentiate: true})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(2.0), exp.Rows[0][meta.ColEstimate].(float64), 1e-9)
}

func TestSensitivityWithEngineDefaults(t *testing.T) {
	m := evenModel(t)

	table, err := m.TidySummary(meta.TidyOptions{ConfInt: true, IncludeStudies: true})
	require.NoError(t, err)

	opts := meta.DefaultOptions()
	merged, err := meta.Sensitivity(table, opts)
	require.NoError(t, err)

	require.Len(t, merged.Rows, 4)
	assert.True(t, merged.HasColumn("l1o_estimate"))

	// Leave-one-out estimate for study A joined onto its row
	got, ok := mergedEstimate(merged.Rows, "A", "l1o_estimate")
	require.True(t, ok)
	assert.InDelta(t, 2.5, got, 1e-12)

	// Pooled summary joined onto the Overall row
	got, ok = mergedEstimate(merged.Rows, "Overall", "l1o_estimate")
	require.True(t, ok)
	assert.InDelta(t, 2.0, got, 1e-12)
}

func TestCumulativeWithEngineDefaults(t *testing.T) {
	m := evenModel(t)

	table, err := m.TidySummary(meta.TidyOptions{ConfInt: true, IncludeStudies: true})
	require.NoError(t, err)

	merged, err := meta.Cumulative(table, meta.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, merged.Rows, 4)
	got, ok := mergedEstimate(merged.Rows, "A", "cum_estimate")
	require.True(t, ok)
	assert.InDelta(t, 1.0, got, 1e-12)

	// Final sort groups study rows ahead of the summary row
	assert.Equal(t, meta.TypeSummary, merged.Rows[3][meta.ColType])
}

func mergedEstimate(rows []map[string]interface{}, study, column string) (float64, bool) {
	for _, row := range rows {
		if row[meta.ColStudy] == study {
			v, ok := row[column].(float64)
			return v, ok
		}
	}
	return 0, false
}

func TestDescribeEffects(t *testing.T) {
	summary, err := DescribeEffects([]float64{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.K)
	assert.InDelta(t, 2.0, summary.Mean, 1e-12)
	assert.InDelta(t, 2.0, summary.Median, 1e-12)
	assert.InDelta(t, 1.0, summary.Min, 1e-12)
	assert.InDelta(t, 3.0, summary.Max, 1e-12)

	_, err = DescribeEffects(nil)
	assert.Error(t, err)
}
