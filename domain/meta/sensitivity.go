package meta

import (
	"fmt"

	"metasens/domain/core"
	"metasens/domain/tidy"
)

// AnalysisType selects the sensitivity method
type AnalysisType string

const (
	// AnalysisLeaveOneOut refits the pooled model once per study with that
	// study excluded
	AnalysisLeaveOneOut AnalysisType = "leave1out"
	// AnalysisGroupBy is reserved for group-wise sensitivity analysis.
	// No semantics exist for it yet; requesting it is an explicit
	// not-implemented failure, never a silent no-op.
	AnalysisGroupBy AnalysisType = "group_by"
)

// Default column prefixes for the two analyses
const (
	DefaultSensitivityPrefix = "l1o_"
	DefaultCumulativePrefix  = "cum_"
)

// Options configures a sensitivity or cumulative analysis. Zero-value
// fields take the defaults applied by the entry points; Type is ignored by
// Cumulative.
type Options struct {
	Type         AnalysisType
	Prefix       string
	ConfInt      bool
	Exponentiate bool
	Glance       bool
	Refit        RefitFunc
	Tidy         TidyFunc
	Params       map[string]interface{}
}

// DefaultOptions returns the options both entry points start from:
// leave-one-out with confidence intervals, untransformed estimates, and no
// extended fit statistics
func DefaultOptions() Options {
	return Options{
		Type:    AnalysisLeaveOneOut,
		ConfInt: true,
	}
}

// Sensitivity runs a leave-one-out sensitivity analysis over the fitted
// model attached to table and merges the per-study diagnostics back onto
// it. Every diagnostic column is namespaced with opts.Prefix; the pooled
// summary row rides along under the same prefix, joined to whichever table
// row carries the pool's study label. Input row order is preserved.
func Sensitivity(table *tidy.Table, opts Options) (*tidy.Table, error) {
	switch opts.Type {
	case "", AnalysisLeaveOneOut:
	case AnalysisGroupBy:
		return nil, fmt.Errorf("%w: group-wise sensitivity analysis", core.ErrNotImplemented)
	default:
		return nil, core.NewUnsupportedAnalysisError(string(opts.Type))
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultSensitivityPrefix
	}

	model, err := ExtractModel(table)
	if err != nil {
		return nil, err
	}

	refit, err := resolveRefit(model, opts, false)
	if err != nil {
		return nil, err
	}
	tidier, err := resolveTidy(model, opts)
	if err != nil {
		return nil, err
	}

	diags, err := refit(model, RefitRequest{Params: opts.Params})
	if err != nil {
		return nil, core.NewRefitError(err)
	}

	block, err := assembleDiagnostics(model, diags, tidier, opts)
	if err != nil {
		return nil, err
	}

	merged, err := table.LeftJoin(block, ColStudy, opts.Prefix+ColStudy)
	if err != nil {
		return nil, err
	}
	warnUnmatched(merged, "Sensitivity", opts.Prefix)
	return merged, nil
}
