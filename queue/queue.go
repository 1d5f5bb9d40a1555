// Package queue implements the bounded-concurrency execution queue that
// backs every execution strategy's dispatch: each submitted item runs in its
// own goroutine once it acquires a slot of a weighted semaphore. At
// concurrency 1 items run one at a time, but the order in which waiting
// items start is not guaranteed to match submission order.
package queue

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Queue runs submitted work items under a concurrency ceiling. Submit
// never blocks the caller: acquiring a slot happens in a worker goroutine,
// so a strategy dispatching from inside a store mutation never waits on
// the store's own lock being released by a running task.
type Queue struct {
	mu  sync.RWMutex
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// New creates a queue with the given concurrency ceiling. concurrency < 1
// is treated as 1 (one item at a time).
func New(concurrency int64) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Queue{sem: semaphore.NewWeighted(concurrency)}
}

// Resize changes the concurrency ceiling. Work already queued continues to
// respect the old ceiling until it completes; only newly-submitted items
// see the new one, since semaphore.Weighted has no in-place resize.
func (q *Queue) Resize(concurrency int64) {
	if concurrency < 1 {
		concurrency = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sem = semaphore.NewWeighted(concurrency)
}

// Submit schedules run to execute once a concurrency slot is free. It
// returns immediately; run receives ctx and is responsible for honoring
// cancellation itself.
func (q *Queue) Submit(ctx context.Context, run func(context.Context)) {
	q.mu.RLock()
	sem := q.sem
	q.mu.RUnlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer sem.Release(1)
		run(ctx)
	}()
}

// Drain blocks until every submitted item (queued or running) has
// completed. Used by stop() to reach a clean STOPPED state.
func (q *Queue) Drain() {
	q.wg.Wait()
}
