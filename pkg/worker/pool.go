package worker

import (
	"context"
	"sync/atomic"

	"feed-ingest/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const progressEvery = 100

// Job processes the i-th unit of work
type Job func(ctx context.Context, i int) error

// Pool runs jobs with a bounded number of workers
type Pool struct {
	workerCount int
	log         logger.Logger
}

// NewPool creates a pool. workerCount below 1 is treated as 1.
func NewPool(workerCount int, log logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		workerCount: workerCount,
		log:         logger.Ensure(log),
	}
}

// Workers returns the configured concurrency
func (p *Pool) Workers() int {
	return p.workerCount
}

// Run calls job for every index in [0, n), starting them in index order with at most
// Workers() in flight. The first error cancels the remaining jobs and is returned;
// no new job is started after a failure.
func (p *Pool) Run(ctx context.Context, n int, job Job) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workerCount)

	var completed atomic.Int64

	for i := 0; i < n; i++ {
		// Go blocks while all workers are busy, so this sees failures from earlier jobs
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := job(gctx, i); err != nil {
				return err
			}
			if done := completed.Add(1); done%progressEvery == 0 {
				p.log.Info("progress", "completed", done, "total", n)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
