package search

import (
	"context"
	"runtime"
	"sync"
)

// Evaluator runs one backtest for a given Setting and returns the
// configured target's value. Implementations must be safe to call
// concurrently from multiple goroutines with distinct Settings — each call
// is expected to construct and run its own engine instance — a pure
// function of (strategy class, setting, window).
type Evaluator func(ctx context.Context, setting Setting) (float64, error)

// GridSearch evaluates every setting with a pool of workers (default
// runtime.NumCPU() when workers <= 0) and returns results sorted
// descending by target, mirroring vnpy's multiprocessing.Pool-backed
// run_optimization but with goroutines instead of OS processes.
func GridSearch(ctx context.Context, settings []Setting, workers int, eval Evaluator) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(settings) {
		workers = len(settings)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	results := make([]Result, len(settings))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				target, err := eval(ctx, settings[idx])
				results[idx] = Result{Setting: settings[idx], Target: target, Err: err}
			}
		}()
	}

	for i := range settings {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	SortByTarget(results)
	return results
}
