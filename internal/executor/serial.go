// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package executor implements spec §4.4: a SerialExecutor giving one
// stream absolute FIFO ordering, a ParallelExecutor bounding cross-stream
// concurrency with a semaphore, and a Fleet that allocates one
// SerialExecutor per stream key on first submit and idle-evicts it later.
package executor

import (
	"context"
	"sync"
	"time"
)

// Job is one unit of work submitted to an executor. It runs to completion
// (success or error) before the next Job for the same stream key starts.
type Job func(ctx context.Context) error

// Handle is returned by Submit; it completes when the worker goroutine has
// run the job and recorded its outcome.
type Handle struct {
	done chan struct{}
	err  error
}

// Wait blocks until the job completes or ctx is cancelled, whichever comes
// first, and returns the job's error.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type job struct {
	run    Job
	handle *Handle
}

// SerialExecutor is a single-consumer, multi-producer bounded queue: every
// Job submitted to the same SerialExecutor runs strictly one after
// another, in submission order. This is what gives a (stream_id[,
// perspective_name]) pair its FIFO guarantee (P1).
type SerialExecutor struct {
	queue    chan job
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewSerialExecutor starts the consumer goroutine and returns the
// executor. queueDepth bounds how many pending jobs may be buffered before
// Submit blocks -- the "suspension point" spec §5 calls out for a
// saturated executor.
func NewSerialExecutor(queueDepth int) *SerialExecutor {
	if queueDepth <= 0 {
		queueDepth = 1
	}

	e := &SerialExecutor{
		queue:   make(chan job, queueDepth),
		stopped: make(chan struct{}),
	}

	go e.run()

	return e
}

func (e *SerialExecutor) run() {
	defer close(e.stopped)

	for j := range e.queue {
		j.handle.err = j.run(context.Background())
		close(j.handle.done)
	}
}

// Submit enqueues run and returns a Handle the caller awaits. Submit
// itself may block (a suspension point) if the executor's queue is full.
func (e *SerialExecutor) Submit(ctx context.Context, run Job) (*Handle, error) {
	h := &Handle{done: make(chan struct{})}

	select {
	case e.queue <- job{run: run, handle: h}:
		return h, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop closes the queue and waits for the consumer goroutine to drain any
// already-queued jobs before returning.
func (e *SerialExecutor) Stop() {
	e.stopOnce.Do(func() { close(e.queue) })
	<-e.stopped
}

// Fleet lazily allocates one SerialExecutor per stream key, per spec
// §4.4's "fleet pattern": one executor per aggregate stream gives
// per-aggregate linearizability with cross-aggregate parallelism.
// Executors idle for longer than evictAfter are stopped and removed so a
// long-running process doesn't accumulate one goroutine per stream seen
// since boot.
type Fleet struct {
	mu         sync.Mutex
	executors  map[string]*fleetEntry
	queueDepth int
	evictAfter time.Duration
}

type fleetEntry struct {
	executor   *SerialExecutor
	lastUsedAt time.Time
}

// NewFleet constructs a Fleet. queueDepth is forwarded to every
// SerialExecutor it allocates; evictAfter is the quiet period after which
// an unused executor is stopped and forgotten.
func NewFleet(queueDepth int, evictAfter time.Duration) *Fleet {
	return &Fleet{
		executors:  make(map[string]*fleetEntry),
		queueDepth: queueDepth,
		evictAfter: evictAfter,
	}
}

// For returns the SerialExecutor for key, allocating one on first use.
func (f *Fleet) For(key string) *SerialExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.executors[key]
	if !ok {
		entry = &fleetEntry{executor: NewSerialExecutor(f.queueDepth)}
		f.executors[key] = entry
	}

	entry.lastUsedAt = time.Now()

	return entry.executor
}

// Submit is a convenience wrapper equivalent to f.For(key).Submit(ctx, run).
func (f *Fleet) Submit(ctx context.Context, key string, run Job) (*Handle, error) {
	return f.For(key).Submit(ctx, run)
}

// EvictIdle stops and removes every executor whose last submission is
// older than evictAfter. Callers run this periodically (e.g. from the
// same ticker driving a worker's poll loop).
func (f *Fleet) EvictIdle() {
	f.mu.Lock()
	cutoff := time.Now().Add(-f.evictAfter)
	toStop := make([]*SerialExecutor, 0)

	for key, entry := range f.executors {
		if entry.lastUsedAt.Before(cutoff) {
			toStop = append(toStop, entry.executor)
			delete(f.executors, key)
		}
	}
	f.mu.Unlock()

	for _, e := range toStop {
		e.Stop()
	}
}

// StopAll stops every executor currently in the fleet, for shutdown.
func (f *Fleet) StopAll() {
	f.mu.Lock()
	entries := make([]*fleetEntry, 0, len(f.executors))
	for key, entry := range f.executors {
		entries = append(entries, entry)
		delete(f.executors, key)
	}
	f.mu.Unlock()

	for _, entry := range entries {
		entry.executor.Stop()
	}
}
