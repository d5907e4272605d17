// Package workerpool provides the data-parallel execution primitives
// spec.md Section 5 calls for: a single pass (Namer, Resolver, Infer) fans
// out over a known list of per-file units with bounded concurrency, and the
// preprocessor thread feeds a running stream of tasks whose count isn't
// known upfront. Grounded on the teacher's own errgroup.WithContext +
// SetLimit idiom (internal/mcp/integration_test.go) for the former, and on
// x/sync/semaphore's weighted-acquire pattern for the latter.
package workerpool

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrCancelled is returned by Checkpoint once a Checkpointer has been
// cancelled.
var ErrCancelled = errors.New("workerpool: cancelled at checkpoint")

// Run executes fn once per item in items, at most maxConcurrency at a time,
// and returns one result per item in input order. maxConcurrency <= 0 means
// unbounded. The first error from any fn cancels ctx for the rest and Run
// returns that error with a nil result slice, matching errgroup's
// fail-fast contract (every SPEC_FULL pass treats a per-file failure as
// fatal to the whole pass, never partial).
func Run[T, R any](ctx context.Context, maxConcurrency int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}

	results := make([]R, len(items))
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// StreamPool bounds concurrent execution of tasks submitted incrementally
// over the pool's lifetime (the preprocessor thread's inbound request
// stream), rather than a fixed upfront slice -- the shape errgroup.Go
// assumes. Acquire/Release on a weighted semaphore is the natural fit here
// since the caller doesn't know the total task count when it creates the
// pool.
type StreamPool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewStreamPool creates a pool that runs at most maxConcurrency tasks
// concurrently.
func NewStreamPool(maxConcurrency int64) *StreamPool {
	return &StreamPool{sem: semaphore.NewWeighted(maxConcurrency)}
}

// Submit blocks until a slot is free (or ctx is done) then runs task in its
// own goroutine. A context cancellation while waiting for a slot returns
// the context's error and does not run task.
func (p *StreamPool) Submit(ctx context.Context, task func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		task()
	}()
	return nil
}

// Wait blocks until every submitted task has returned.
func (p *StreamPool) Wait() {
	p.wg.Wait()
}

// Checkpointer is the single cancellation flag a slow-path pass polls
// between per-file units and between passes (spec.md Section 5's
// "preemption checkpoint"). Safe for concurrent Cancel/Checkpoint calls:
// the preemption manager cancels from the typechecker thread while workers
// on the pool poll Checkpoint from their own goroutines.
type Checkpointer struct {
	mu        sync.Mutex
	cancelled bool
}

// Cancel marks every future Checkpoint call as cancelled. Idempotent.
func (c *Checkpointer) Cancel() {
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()
}

// Cancelled reports the current cancellation state without erroring.
func (c *Checkpointer) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Checkpoint returns ErrCancelled iff Cancel has been called; passes check
// this between per-file units and between passes, per the checkpoint
// contract.
func (c *Checkpointer) Checkpoint() error {
	if c.Cancelled() {
		return ErrCancelled
	}
	return nil
}
