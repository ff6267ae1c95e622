package meta

import (
	"metasens/domain/core"
	"metasens/domain/tidy"
)

// Cumulative runs a cumulative sensitivity analysis: the pooled model is
// refit repeatedly, adding one study at a time in the order the table's
// study rows appear. Pre-sorting the table (by weight, say) therefore
// controls the accumulation order. Diagnostics are merged back under
// opts.Prefix and the result is re-sorted ascending by the type column,
// grouping study rows apart from the summary row.
func Cumulative(table *tidy.Table, opts Options) (*tidy.Table, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultCumulativePrefix
	}

	model, err := ExtractModel(table)
	if err != nil {
		return nil, err
	}

	order, err := deriveOrder(table, model)
	if err != nil {
		return nil, err
	}

	refit, err := resolveRefit(model, opts, true)
	if err != nil {
		return nil, err
	}
	tidier, err := resolveTidy(model, opts)
	if err != nil {
		return nil, err
	}

	diags, err := refit(model, RefitRequest{Order: order, Params: opts.Params})
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
	warnUnmatched(merged, "Cumulative", opts.Prefix)
	return merged.SortStableBy(ColType), nil
}

// deriveOrder maps the table's study rows, in row order, onto 1-based
// positions in the model's native label vector. A study row whose label the
// model does not know would put a hole in the sequence, so it fails the
// call before any refitting happens.
func deriveOrder(table *tidy.Table, m Model) ([]int, error) {
	positions := make(map[string]int)
	for i, label := range m.Slab() {
		positions[label] = i + 1
	}

	var order []int
	for _, row := range table.Rows {
		if rowType, _ := tidy.AsString(row[ColType]); rowType != TypeStudy {
			continue
		}
		study, _ := tidy.AsString(row[ColStudy])
		pos, ok := positions[study]
		if !ok {
			return nil, core.NewJoinKeyMismatchError(study)
		}
		order = append(order, pos)
	}
	if len(order) == 0 {
		return nil, core.NewInsufficientDataError("results table has no study rows")
	}
	return order, nil
}
