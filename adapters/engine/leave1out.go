package engine

import (
	"context"
	"sync"

	"metasens/domain/meta"

	"golang.org/x/sync/semaphore"
)

// maxConcurrentRefits bounds the refit fan-out; each refit is a small
// in-memory computation, so a modest ceiling keeps large analyses from
// spawning one goroutine per study all at once
const maxConcurrentRefits = 8

// LeaveOneOut refits the pooled model once per study with that study
// excluded and returns one diagnostic row per study, in slab order. Refits
// run concurrently under a weighted semaphore.
func (m *Model) LeaveOneOut(req meta.RefitRequest) ([]meta.Diagnostic, error) {
	k := len(m.yi)
	diags := make([]meta.Diagnostic, k)

	sem := semaphore.NewWeighted(maxConcurrentRefits)
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < k; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)

			yi := make([]float64, 0, k-1)
			vi := make([]float64, 0, k-1)
			for j := 0; j < k; j++ {
				if j != i {
					yi = append(yi, m.yi[j])
					vi = append(vi, m.vi[j])
				}
			}
			diags[i] = diagnostic(m.labels[i], pool(yi, vi, m.method, m.confLevel))
		}(i)
	}

	wg.Wait()
	return diags, nil
}
