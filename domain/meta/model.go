package meta

import (
	"metasens/domain/core"
	"metasens/domain/tidy"
)

// Column names shared by diagnostic tables and tidy summaries. The dotted
// forms match the tidy results vocabulary used across the ecosystem, so
// merged tables stay interoperable with downstream tooling.
const (
	ColStudy     = "study"
	ColType      = "type"
	ColEstimate  = "estimate"
	ColStdError  = "std.error"
	ColStatistic = "statistic"
	ColPValue    = "p.value"
	ColConfLow   = "conf.low"
	ColConfHigh  = "conf.high"

	// Extended fit statistics, present only when glance output is requested
	ColQ          = "q"
	ColQP         = "qp"
	ColTauSquared = "tau.squared"
	ColISquared   = "i.squared"
	ColHSquared   = "h.squared"
)

// Row discriminator values for the type column
const (
	TypeStudy   = "study"
	TypeSummary = "summary"
)

// ModelAttr is the table attribute key under which a fitted model rides
// along with the results derived from it
const ModelAttr = "meta.model"

// Model is an opaque fitted meta-analysis model. It exposes only the
// ordered per-study label vector; everything else is the business of the
// engine that fit it.
type Model interface {
	Slab() []string
}

// Diagnostic is one per-study row produced by a refit function. The five
// extended fields are meaningful only when the refit computed them.
type Diagnostic struct {
	Study      string
	Estimate   float64
	StdError   float64
	Statistic  float64
	PValue     float64
	ConfLow    float64
	ConfHigh   float64
	Q          float64
	QP         float64
	TauSquared float64
	ISquared   float64
	HSquared   float64
}

// RefitRequest carries the arguments a refit function may need. Order is
// the 1-based study processing sequence for cumulative refits (nil means
// the model's native order). Params forwards arbitrary caller arguments to
// the refit implementation.
type RefitRequest struct {
	Order  []int
	Params map[string]interface{}
}

// RefitFunc re-fits a model per study and returns one diagnostic row per
// study. Leave-one-out refits ignore the request order; cumulative refits
// honor it.
type RefitFunc func(m Model, req RefitRequest) ([]Diagnostic, error)

// TidyOptions configures the one-row pooled summary
type TidyOptions struct {
	ConfInt        bool
	Exponentiate   bool
	Glance         bool
	IncludeStudies bool
}

// TidyFunc converts a fitted model into a tidy table: one summary row
// (type=summary), plus per-study rows when IncludeStudies is set
type TidyFunc func(m Model, opts TidyOptions) (*tidy.Table, error)

// LeaveOneOutRefitter is implemented by models that can run their own
// leave-one-out diagnostic; it serves as the default refit function
type LeaveOneOutRefitter interface {
	LeaveOneOut(req RefitRequest) ([]Diagnostic, error)
}

// CumulativeRefitter is implemented by models that can run their own
// cumulative diagnostic; it serves as the default cumulative refit function
type CumulativeRefitter interface {
	CumulativeRefit(req RefitRequest) ([]Diagnostic, error)
}

// SummaryTidier is implemented by models that can tidy themselves; it
// serves as the default tidy function
type SummaryTidier interface {
	TidySummary(opts TidyOptions) (*tidy.Table, error)
}

// AttachModel stores the fitted model in the table's attributes
func AttachModel(t *tidy.Table, m Model) {
	if t.Attrs == nil {
		t.Attrs = map[string]interface{}{}
	}
	t.Attrs[ModelAttr] = m
}

// ExtractModel recovers the fitted model a results table was derived from
func ExtractModel(t *tidy.Table) (Model, error) {
	m, ok := t.Attrs[ModelAttr].(Model)
	if !ok {
		return nil, core.ErrNoModel
	}
	return m, nil
}
