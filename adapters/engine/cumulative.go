package engine

import (
	"fmt"

	"metasens/domain/meta"
)

// CumulativeRefit refits the pooled model over growing prefixes of the
// requested 1-based study order: the first fit covers one study, the last
// covers all of them. A nil order means the model's native slab order.
// Each diagnostic row is labeled with the study added at that step.
func (m *Model) CumulativeRefit(req meta.RefitRequest) ([]meta.Diagnostic, error) {
	k := len(m.yi)

	order := req.Order
	if order == nil {
		order = make([]int, k)
		for i := range order {
			order[i] = i + 1
		}
	}
	if len(order) != k {
		return nil, fmt.Errorf("cumulative order covers %d of %d studies", len(order), k)
	}
	seen := make(map[int]bool, k)
	for _, pos := range order {
		if pos < 1 || pos > k {
			return nil, fmt.Errorf("cumulative order position %d out of range [1, %d]", pos, k)
		}
		if seen[pos] {
			return nil, fmt.Errorf("cumulative order repeats position %d", pos)
		}
		seen[pos] = true
	}

	diags := make([]meta.Diagnostic, k)
	yi := make([]float64, 0, k)
	vi := make([]float64, 0, k)
	for step, pos := range order {
		yi = append(yi, m.yi[pos-1])
		vi = append(vi, m.vi[pos-1])
		diags[step] = diagnostic(m.labels[pos-1], pool(yi, vi, m.method, m.confLevel))
	}
	return diags, nil
}
