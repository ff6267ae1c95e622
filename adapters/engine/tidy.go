package engine

import (
	"math"

	"metasens/domain/meta"
	"metasens/domain/tidy"

	"gonum.org/v1/gonum/stat/distuv"
)

// TidySummary converts the fitted model into a tidy results table: one
// pooled summary row (type=summary), preceded by per-study rows
// (type=study) when IncludeStudies is set. The model itself rides along in
// the table attributes, so the table can be handed straight to
// meta.Sensitivity or meta.Cumulative.
func (m *Model) TidySummary(opts meta.TidyOptions) (*tidy.Table, error) {
	columns := []string{
		meta.ColStudy, meta.ColEstimate, meta.ColStdError, meta.ColStatistic,
		meta.ColPValue, meta.ColConfLow, meta.ColConfHigh,
	}
	if opts.Glance {
		columns = append(columns,
			meta.ColQ, meta.ColQP, meta.ColTauSquared, meta.ColISquared, meta.ColHSquared)
	}
	columns = append(columns, meta.ColType)

	t := tidy.New(columns...)

	if opts.IncludeStudies {
		crit := distuv.UnitNormal.Quantile(1 - (1-m.confLevel)/2)
		for i, label := range m.labels {
			se := math.Sqrt(m.vi[i])
			z := m.yi[i] / se
			// Extended fit statistics belong to pooled fits, not to
			// individual studies; those cells stay null.
			t.Append(map[string]interface{}{
				meta.ColStudy:     label,
				meta.ColEstimate:  m.yi[i],
				meta.ColStdError:  se,
				meta.ColStatistic: z,
				meta.ColPValue:    2 * (1 - distuv.UnitNormal.CDF(math.Abs(z))),
				meta.ColConfLow:   m.yi[i] - crit*se,
				meta.ColConfHigh:  m.yi[i] + crit*se,
				meta.ColType:      meta.TypeStudy,
			})
		}
	}

	r := m.result
	summary := map[string]interface{}{
		meta.ColStudy:     m.summaryLabel,
		meta.ColEstimate:  r.Estimate,
		meta.ColStdError:  r.StdError,
		meta.ColStatistic: r.Statistic,
		meta.ColPValue:    r.PValue,
		meta.ColConfLow:   r.ConfLow,
		meta.ColConfHigh:  r.ConfHigh,
		meta.ColType:      meta.TypeSummary,
	}
	if opts.Glance {
		summary[meta.ColQ] = r.Q
		summary[meta.ColQP] = r.QP
		summary[meta.ColTauSquared] = r.Tau2
		summary[meta.ColISquared] = r.I2
		summary[meta.ColHSquared] = r.H2
	}
	t.Append(summary)

	if opts.Exponentiate {
		err := t.ExpColumns(meta.ColEstimate, meta.ColConfLow, meta.ColConfHigh)
		if err != nil {
			return nil, err
		}
	}
	if !opts.ConfInt {
		t = t.Drop(meta.ColConfLow, meta.ColConfHigh)
	}

	meta.AttachModel(t, m)
	return t, nil
}
