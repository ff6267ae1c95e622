package meta

import (
	"log"

	"metasens/domain/core"
	"metasens/domain/tidy"
)

// baseColumns is the seven-column diagnostic shape every refit must produce
var baseColumns = []string{
	ColStudy, ColEstimate, ColStdError, ColStatistic, ColPValue, ColConfLow, ColConfHigh,
}

// glanceColumns are the extended fit statistics kept only on request.
// Removal is by explicit name, never by position, so refit implementations
// are free to evolve their native column order.
var glanceColumns = []string{
	ColQ, ColQP, ColTauSquared, ColISquared, ColHSquared,
}

// diagnosticsBlock converts refit output into a tidy table, with study
// labels as an explicit column
func diagnosticsBlock(diags []Diagnostic, glance bool) *tidy.Table {
	columns := append([]string{}, baseColumns...)
	if glance {
		columns = append(columns, glanceColumns...)
	}

	block := tidy.New(columns...)
	for _, d := range diags {
		row := map[string]interface{}{
			ColStudy:     d.Study,
			ColEstimate:  d.Estimate,
			ColStdError:  d.StdError,
			ColStatistic: d.Statistic,
			ColPValue:    d.PValue,
			ColConfLow:   d.ConfLow,
			ColConfHigh:  d.ConfHigh,
		}
		if glance {
			row[ColQ] = d.Q
			row[ColQP] = d.QP
			row[ColTauSquared] = d.TauSquared
			row[ColISquared] = d.ISquared
			row[ColHSquared] = d.HSquared
		}
		block.Append(row)
	}
	return block
}

// assembleDiagnostics runs the shared reshape pipeline: prefix every column,
// exponentiate the estimate and bounds on request, drop the bounds when
// confidence intervals are not wanted, then stack the prefixed pooled
// summary row below the per-study rows. The returned table is ready to be
// left-joined onto the caller's results table.
func assembleDiagnostics(m Model, diags []Diagnostic, tidier TidyFunc, opts Options) (*tidy.Table, error) {
	block := diagnosticsBlock(diags, opts.Glance).RenameWithPrefix(opts.Prefix)

	if opts.Exponentiate {
		err := block.ExpColumns(opts.Prefix+ColEstimate, opts.Prefix+ColConfLow, opts.Prefix+ColConfHigh)
		if err != nil {
			return nil, err
		}
	}
	if !opts.ConfInt {
		block = block.Drop(opts.Prefix+ColConfLow, opts.Prefix+ColConfHigh)
	}

	summary, err := tidier(m, TidyOptions{
		ConfInt:        opts.ConfInt,
		Exponentiate:   opts.Exponentiate,
		Glance:         opts.Glance,
		IncludeStudies: false,
	})
	if err != nil {
		return nil, err
	}
	summary = summary.Drop(ColType).RenameWithPrefix(opts.Prefix)

	return block.Stack(summary)
}

// resolveRefit picks the caller-supplied refit function or falls back to
// the model's own implementation
func resolveRefit(m Model, opts Options, cumulative bool) (RefitFunc, error) {
	if opts.Refit != nil {
		return opts.Refit, nil
	}
	if cumulative {
		if r, ok := m.(CumulativeRefitter); ok {
			return func(_ Model, req RefitRequest) ([]Diagnostic, error) {
				return r.CumulativeRefit(req)
			}, nil
		}
	} else {
		if r, ok := m.(LeaveOneOutRefitter); ok {
			return func(_ Model, req RefitRequest) ([]Diagnostic, error) {
				return r.LeaveOneOut(req)
			}, nil
		}
	}
	return nil, core.ErrNoRefitter
}

// resolveTidy picks the caller-supplied tidier or the model's own
func resolveTidy(m Model, opts Options) (TidyFunc, error) {
	if opts.Tidy != nil {
		return opts.Tidy, nil
	}
	if t, ok := m.(SummaryTidier); ok {
		return func(_ Model, topts TidyOptions) (*tidy.Table, error) {
			return t.TidySummary(topts)
		}, nil
	}
	return nil, core.ErrNoTidier
}

// warnUnmatched logs study rows whose join produced no diagnostics, which
// means the model's label set and the table's study column disagree
func warnUnmatched(merged *tidy.Table, component, prefix string) {
	probe := prefix + ColStudy
	if !merged.HasColumn(probe) {
		return
	}
	for _, row := range merged.Rows {
		if rowType, _ := tidy.AsString(row[ColType]); rowType != TypeStudy {
			continue
		}
		if row[probe] == nil {
			study, _ := tidy.AsString(row[ColStudy])
			log.Printf("[%s] WARNING - %v", component, core.NewJoinKeyMismatchError(study))
		}
	}
}
