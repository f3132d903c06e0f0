// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package workcoordinator implements spec §4.3: a scoped buffer
// accumulating outbox inserts, inbox inserts, and state transitions for a
// single unit of work, flushed through coordination.Store.ProcessBatch at
// an explicit point chosen by the caller.
package workcoordinator

import (
	"context"
	"sync"
	"time"

	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"

	"github.com/LerianStudio/workhub/pkg/wconstant"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// BatchCaller is the subset of coordination.Store the strategy needs. It is
// declared here, not imported, to keep workcoordinator independent of the
// pgx-backed implementation -- the same shape this package's and the
// workers' unit tests hand a fake for.
type BatchCaller interface {
	ProcessBatch(ctx context.Context, req wmodel.BatchRequest) (wmodel.BatchResult, error)
}

// Strategy is a per-unit-of-work buffer. Queued items are never
// persisted until Flush runs; if Flush is never called they are simply
// garbage collected along with the Strategy, per spec §4.3.
type Strategy struct {
	store    BatchCaller
	identity wmodel.InstanceIdentity
	lease    time.Duration
	logger   libLog.Logger

	mu                          sync.Mutex
	newOutbox                   []wmodel.NewOutboxRow
	newInbox                    []wmodel.NewInboxRow
	outboxCompletions           []wmodel.OutboxTransition
	inboxCompletions            []wmodel.InboxTransition
	perspectiveEventCompletions []wmodel.PerspectiveEventTransition
	perspectiveCompletions      []wmodel.PerspectiveTransition
}

// New builds a Strategy scoped to one unit of work (typically one request
// or one worker poll cycle).
func New(store BatchCaller, identity wmodel.InstanceIdentity, lease time.Duration, logger libLog.Logger) *Strategy {
	if lease <= 0 {
		lease = wconstant.DefaultLeaseDuration
	}

	return &Strategy{store: store, identity: identity, lease: lease, logger: logger}
}

// EnqueueOutbox buffers an outbox insert for the next Flush. Implements
// dispatcher.Flusher.
func (s *Strategy) EnqueueOutbox(row wmodel.NewOutboxRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.newOutbox = append(s.newOutbox, row)
}

// EnqueueInbox buffers an inbox insert for the next Flush.
func (s *Strategy) EnqueueInbox(row wmodel.NewInboxRow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.newInbox = append(s.newInbox, row)
}

// ReportOutbox buffers a completion/failure report for a previously
// claimed outbox row.
func (s *Strategy) ReportOutbox(t wmodel.OutboxTransition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outboxCompletions = append(s.outboxCompletions, t)
}

// ReportInbox buffers a completion/failure report for a previously
// claimed inbox row.
func (s *Strategy) ReportInbox(t wmodel.InboxTransition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inboxCompletions = append(s.inboxCompletions, t)
}

// ReportPerspectiveEvent buffers a completion/failure report for a
// previously claimed perspective-event work row.
func (s *Strategy) ReportPerspectiveEvent(t wmodel.PerspectiveEventTransition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.perspectiveEventCompletions = append(s.perspectiveEventCompletions, t)
}

// ReportPerspective buffers a checkpoint-level completion/failure report,
// independent of any single work row.
func (s *Strategy) ReportPerspective(t wmodel.PerspectiveTransition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.perspectiveCompletions = append(s.perspectiveCompletions, t)
}

// Flush calls ProcessBatch once with everything buffered so far and
// clears the buffer, returning the work the caller should execute next.
// This is the "Immediate" flush point of spec §4.3: callers invoke it
// directly after a synchronous operation.
func (s *Strategy) Flush(ctx context.Context, opts ...Option) (wmodel.BatchResult, error) {
	cfg := defaultFlushConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	req := wmodel.BatchRequest{
		Identity:                    s.identity,
		Now:                         time.Now().UTC(),
		LeaseDuration:               s.lease,
		PartitionCount:              cfg.partitionCount,
		Partitions:                  cfg.partitions,
		BatchSize:                   cfg.batchSize,
		NewOutbox:                   s.newOutbox,
		NewInbox:                    s.newInbox,
		OutboxCompletions:           s.outboxCompletions,
		InboxCompletions:            s.inboxCompletions,
		PerspectiveEventCompletions: s.perspectiveEventCompletions,
		PerspectiveCompletions:      s.perspectiveCompletions,
	}
	s.newOutbox = nil
	s.newInbox = nil
	s.outboxCompletions = nil
	s.inboxCompletions = nil
	s.perspectiveEventCompletions = nil
	s.perspectiveCompletions = nil
	s.mu.Unlock()

	return s.store.ProcessBatch(ctx, req)
}

// PostCommit is the second flush point spec §4.3 names: called after the
// ambient database transaction commits, so a perspective write made
// inside that transaction and the outbox row enqueued alongside it
// preserve the transactional-outbox property (P7) together. It is
// identical to Flush -- the distinction is purely about *when* the caller
// invokes it, not how it behaves.
func (s *Strategy) PostCommit(ctx context.Context, opts ...Option) (wmodel.BatchResult, error) {
	return s.Flush(ctx, opts...)
}

type flushConfig struct {
	batchSize      int32
	partitionCount int32
	partitions     []int32
}

func defaultFlushConfig() flushConfig {
	return flushConfig{
		batchSize:      wconstant.DefaultBatchSize,
		partitionCount: wconstant.DefaultPartitionCount,
	}
}

// Option customizes one Flush/PostCommit call.
type Option func(*flushConfig)

// WithBatchSize overrides the default claim batch size for this flush.
func WithBatchSize(n int32) Option {
	return func(c *flushConfig) { c.batchSize = n }
}

// WithPartitions restricts claiming to the given partition set, for
// workers assigned a subset of partitions.
func WithPartitions(partitionCount int32, partitions []int32) Option {
	return func(c *flushConfig) {
		c.partitionCount = partitionCount
		c.partitions = partitions
	}
}
