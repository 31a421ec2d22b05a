// -----------------------------------------------------------------------
// Worker Pool - bounded parallel execution of a fixed task list.
// Used by knowledge base setup to download and extract papers in
// parallel while tolerating individual task failures.
// -----------------------------------------------------------------------

package workers

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"
)

// Task is one unit of parallel work
type Task func(ctx context.Context) error

// Pool runs tasks with a fixed concurrency limit
type Pool struct {
	size   int
	logger arbor.ILogger
}

// NewPool creates a pool running at most size tasks concurrently
func NewPool(size int, logger arbor.ILogger) *Pool {
	if size <= 0 {
		size = 3
	}
	return &Pool{
		size:   size,
		logger: logger,
	}
}

// Run executes all tasks and blocks until they finish. Failed tasks do
// not stop the others; their errors are collected and returned.
func (p *Pool) Run(ctx context.Context, tasks []Task) []error {
	p.logger.Debug().
		Int("workers", p.size).
		Int("tasks", len(tasks)).
		Msg("Running worker pool")

	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, p.size)
		mu   sync.Mutex
		errs []error
	)

	for i, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, t Task) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := t(ctx); err != nil {
				p.logger.Warn().
					Err(err).
					Int("task", idx).
					Msg("Pool task failed")

				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(i, task)
	}

	wg.Wait()
	return errs
}
