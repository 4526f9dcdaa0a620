package backtest

import (
	"context"
	"sync"
	"time"
)

// Job identifies one independent backtest: a strategy applied to a symbol.
type Job struct {
	Strategy string
	Symbol   string
}

// RunAll executes the given jobs concurrently over the shared date range and
// capital configuration. Runs are embarrassingly parallel: each owns an
// isolated ledger and trade history, so no state is shared between workers.
// The returned slice is aligned with jobs; entries for failed runs are nil
// and the failure is logged.
func (r *Runner) RunAll(ctx context.Context, jobs []Job, from, to time.Time, cfg Config, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = 4
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	results := make([]*Result, len(jobs))

	jobCh := make(chan int, len(jobs))
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				if ctx.Err() != nil {
					return
				}
				job := jobs[idx]
				res, err := r.Run(ctx, job.Strategy, job.Symbol, from, to, cfg)
				if err != nil {
					r.log.Error("backtest failed",
						"symbol", job.Symbol,
						"strategy", job.Strategy,
						"err", err,
					)
					continue
				}
				results[idx] = res
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
