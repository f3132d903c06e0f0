// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package executor

import "context"

// ParallelExecutor bounds concurrency across unrelated streams with a
// counting semaphore, grounded in the same sem := make(chan struct{}, N)
// plus sync.WaitGroup shape the teacher's RedisQueueConsumer uses to cap
// concurrent transaction processing.
//
// The fast path spec §4.4 describes -- a handler that completes
// synchronously skips scheduler/goroutine allocation entirely -- is
// realized here by acquiring the semaphore slot and running the job
// synchronously on the caller's goroutine rather than spawning one: Go has
// no async state machine to pool, so the equivalent saving is simply not
// paying for a goroutine when the semaphore is free and the job is quick.
type ParallelExecutor struct {
	sem chan struct{}
}

// NewParallelExecutor builds a ParallelExecutor allowing up to maxConcurrency
// jobs in flight at once.
func NewParallelExecutor(maxConcurrency int) *ParallelExecutor {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	return &ParallelExecutor{sem: make(chan struct{}, maxConcurrency)}
}

// Run acquires a semaphore slot -- immediately if one is free, otherwise
// suspending until capacity frees or ctx is cancelled -- then executes run
// synchronously and releases the slot.
func (p *ParallelExecutor) Run(ctx context.Context, run Job) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	defer func() { <-p.sem }()

	return run(ctx)
}

// TryRun attempts the fast path: if a slot is immediately available it
// runs synchronously and returns true, ran. If the semaphore is saturated
// it returns false without blocking, leaving the caller to fall back to
// Run (or to retry later).
func (p *ParallelExecutor) TryRun(ctx context.Context, run Job) (ran bool, err error) {
	select {
	case p.sem <- struct{}{}:
	default:
		return false, nil
	}

	defer func() { <-p.sem }()

	return true, run(ctx)
}

// InFlight reports how many jobs currently hold a semaphore slot.
func (p *ParallelExecutor) InFlight() int {
	return len(p.sem)
}

// Capacity reports the maximum concurrency this executor allows.
func (p *ParallelExecutor) Capacity() int {
	return cap(p.sem)
}
