package engine

import (
	"math"

	"metasens/domain/core"
	"metasens/domain/meta"

	"gonum.org/v1/gonum/stat/distuv"
)

// Method selects the pooling model
type Method string

const (
	// MethodFixed pools with inverse-variance fixed-effects weights
	MethodFixed Method = "FE"
	// MethodDL pools with DerSimonian-Laird random-effects weights
	MethodDL Method = "DL"
)

// FitOptions configures a model fit. Zero values take the defaults:
// DerSimonian-Laird, 95% confidence level, summary label "Overall".
type FitOptions struct {
	Method       Method
	ConfLevel    float64
	SummaryLabel string
}

// FitResult holds the pooled statistics of a single fit
type FitResult struct {
	Estimate  float64
	StdError  float64
	Statistic float64
	PValue    float64
	ConfLow   float64
	ConfHigh  float64

	// Heterogeneity statistics
	Q    float64
	QP   float64
	Tau2 float64
	I2   float64
	H2   float64

	K int
}

// Model is an inverse-variance pooled meta-analysis model over per-study
// effect sizes yi and sampling variances vi. It implements the refit and
// tidy collaborator contracts of domain/meta, so it serves as the default
// engine behind Sensitivity and Cumulative.
type Model struct {
	labels       []string
	yi           []float64
	vi           []float64
	method       Method
	confLevel    float64
	summaryLabel string
	result       FitResult
}

// Compile-time collaborator contract checks
var (
	_ meta.Model               = (*Model)(nil)
	_ meta.LeaveOneOutRefitter = (*Model)(nil)
	_ meta.CumulativeRefitter  = (*Model)(nil)
	_ meta.SummaryTidier       = (*Model)(nil)
)

// Fit pools per-study effects into a meta-analysis model. Requires at
// least two studies with strictly positive sampling variances and one
// label per study.
func Fit(labels []string, yi, vi []float64, opts FitOptions) (*Model, error) {
	if len(yi) < 2 {
		return nil, core.NewInsufficientDataError("meta-analysis requires at least 2 studies")
	}
	if len(vi) != len(yi) || len(labels) != len(yi) {
		return nil, core.NewInsufficientDataError("labels, effects and variances must have equal length")
	}
	for _, v := range vi {
		if v <= 0 || math.IsNaN(v) {
			return nil, core.NewInsufficientDataError("sampling variances must be strictly positive")
		}
	}

	if opts.Method == "" {
		opts.Method = MethodDL
	}
	if opts.ConfLevel == 0 {
		opts.ConfLevel = 0.95
	}
	if opts.ConfLevel <= 0 || opts.ConfLevel >= 1 {
		return nil, core.NewInsufficientDataError("confidence level must be in (0, 1)")
	}
	if opts.SummaryLabel == "" {
		opts.SummaryLabel = "Overall"
	}

	m := &Model{
		labels:       append([]string{}, labels...),
		yi:           append([]float64{}, yi...),
		vi:           append([]float64{}, vi...),
		method:       opts.Method,
		confLevel:    opts.ConfLevel,
		summaryLabel: opts.SummaryLabel,
	}
	m.result = pool(m.yi, m.vi, m.method, m.confLevel)
	return m, nil
}

// Slab returns the per-study label vector in its native order
func (m *Model) Slab() []string {
	return append([]string{}, m.labels...)
}

// Result returns the pooled fit statistics
func (m *Model) Result() FitResult {
	return m.result
}

// SummaryLabel returns the study label used for the pooled summary row
func (m *Model) SummaryLabel() string {
	return m.summaryLabel
}

// pool computes the inverse-variance pooled estimate and heterogeneity
// statistics. Handles k == 1 (degenerate single-study pool) so refits over
// subsets stay total.
func pool(yi, vi []float64, method Method, confLevel float64) FitResult {
	k := len(yi)

	sumW, sumW2, sumWY := 0.0, 0.0, 0.0
	for i := 0; i < k; i++ {
		w := 1.0 / vi[i]
		sumW += w
		sumW2 += w * w
		sumWY += w * yi[i]
	}
	estFE := sumWY / sumW

	// Cochran's Q against the fixed-effects pool
	q := 0.0
	for i := 0; i < k; i++ {
		d := yi[i] - estFE
		q += d * d / vi[i]
	}

	df := float64(k - 1)
	qp := 1.0
	if df > 0 {
		chi := distuv.ChiSquared{K: df}
		qp = 1 - chi.CDF(q)
	}

	// DerSimonian-Laird between-study variance
	tau2 := 0.0
	if method == MethodDL && df > 0 {
		c := sumW - sumW2/sumW
		if c > 0 {
			tau2 = math.Max(0, (q-df)/c)
		}
	}

	est, se := estFE, math.Sqrt(1.0/sumW)
	if tau2 > 0 {
		sw, swy := 0.0, 0.0
		for i := 0; i < k; i++ {
			w := 1.0 / (vi[i] + tau2)
			sw += w
			swy += w * yi[i]
		}
		est = swy / sw
		se = math.Sqrt(1.0 / sw)
	}

	z := est / se
	p := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
	crit := distuv.UnitNormal.Quantile(1 - (1-confLevel)/2)

	i2, h2 := 0.0, 1.0
	if df > 0 && q > 0 {
		i2 = math.Max(0, (q-df)/q) * 100
		h2 = q / df
	}

	return FitResult{
		Estimate:  est,
		StdError:  se,
		Statistic: z,
		PValue:    p,
		ConfLow:   est - crit*se,
		ConfHigh:  est + crit*se,
		Q:         q,
		QP:        qp,
		Tau2:      tau2,
		I2:        i2,
		H2:        h2,
		K:         k,
	}
}

// diagnostic converts a fit over a subset into the diagnostic row shape
func diagnostic(study string, r FitResult) meta.Diagnostic {
	return meta.Diagnostic{
		Study:      study,
		Estimate:   r.Estimate,
		StdError:   r.StdError,
		Statistic:  r.Statistic,
		PValue:     r.PValue,
		ConfLow:    r.ConfLow,
		ConfHigh:   r.ConfHigh,
		Q:          r.Q,
		QP:         r.QP,
		TauSquared: r.Tau2,
		ISquared:   r.I2,
		HSquared:   r.H2,
	}
}
