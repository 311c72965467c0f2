package dynamo

import (
	"context"
	"runtime"
	"sync"
)

// Job is one independent run inside an Ensemble.
type Job func(ctx context.Context) (*Result, error)

// Ensemble runs independent jobs concurrently. Each job owns its own
// simulator, so no state is shared between goroutines.
type Ensemble struct {
	jobs    []Job
	workers int
}

func NewEnsemble(workers int, jobs ...Job) *Ensemble {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Ensemble{jobs: jobs, workers: workers}
}

func (e *Ensemble) Add(j Job) {
	e.jobs = append(e.jobs, j)
}

func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(e.jobs))
	errs := make([]error, len(e.jobs))

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for i := range e.jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx], errs[idx] = e.jobs[idx](ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// ParallelFor splits [0, n) into contiguous chunks of at least minChunk and
// runs fn on each chunk concurrently. Small ranges run inline.
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	if minChunk < 1 {
		minChunk = 1
	}
	workers := min(runtime.GOMAXPROCS(0), n/minChunk)
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
