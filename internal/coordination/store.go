// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package coordination

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// tracer instruments the single process_work_batch round trip the way
// account.postgresql.go instruments its own postgres adapters: one span
// per call, recording the outcome.
var tracer = otel.Tracer("github.com/LerianStudio/workhub/internal/coordination")

// Store wraps the single process_work_batch round trip every worker calls
// once per polling cycle. It never claims rows in application code: the
// FOR UPDATE SKIP LOCKED claim queries live in the stored procedure body,
// so Store.ProcessBatch is the only query Store issues against the
// coordination schema (internal/admin runs its own read-only counts).
type Store struct {
	pool   *pgxpool.Pool
	schema string
	logger libLog.Logger
}

// NewStore wraps an already-connected pgxpool.Pool. schema is the
// infrastructure schema the migrations created (wconstant.DefaultInfrastructurePrefix's
// owning schema, "workhub" by default).
func NewStore(pool *pgxpool.Pool, schema string, logger libLog.Logger) *Store {
	return &Store{pool: pool, schema: schema, logger: logger}
}

// Connect opens a pgxpool against dsn. Kept separate from NewStore so
// tests (testcontainers) and production bootstrap can share the same
// connect-then-wrap shape the teacher's PostgresConnection.Connect/GetDB
// split uses.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "workhub: open pgx pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "workhub: ping pgx pool")
	}

	return pool, nil
}

// ProcessBatch drives one atomic round of §4.1: heartbeat, lease recovery,
// apply reported transitions, persist new events, auto-create perspective
// work, apply perspective completions, claim a fresh batch. The whole
// thing is one SQL call inside one Postgres transaction.
func (s *Store) ProcessBatch(ctx context.Context, req wmodel.BatchRequest) (wmodel.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "coordination.process_work_batch")
	defer span.End()

	newOutbox := make([]jsonOutboxNew, 0, len(req.NewOutbox))
	for _, n := range req.NewOutbox {
		newOutbox = append(newOutbox, jsonOutboxNew{
			MessageID: n.MessageID, Destination: n.Destination, EventType: n.EventType,
			EnvelopeType: n.EnvelopeType, Envelope: n.Envelope, Metadata: n.Metadata,
			StreamID: n.StreamID, PartitionNumber: n.PartitionNumber, IsEvent: n.IsEvent,
		})
	}

	newInbox := make([]jsonInboxNew, 0, len(req.NewInbox))
	for _, n := range req.NewInbox {
		newInbox = append(newInbox, jsonInboxNew{
			MessageID: n.MessageID, Source: n.Source, Envelope: n.Envelope, StreamID: n.StreamID,
		})
	}

	outboxCompletions := transitionsToJSON(req.OutboxCompletions, func(t wmodel.OutboxTransition) jsonTransition {
		return jsonTransition{RowID: t.MessageID, Failed: t.Failed, Error: t.Error}
	})
	inboxCompletions := transitionsToJSON(req.InboxCompletions, func(t wmodel.InboxTransition) jsonTransition {
		return jsonTransition{RowID: t.MessageID, Failed: t.Failed, Error: t.Error}
	})
	perspectiveEventCompletions := transitionsToJSON(req.PerspectiveEventCompletions, func(t wmodel.PerspectiveEventTransition) jsonTransition {
		return jsonTransition{RowID: t.EventWorkID, Failed: t.Failed, Error: t.Error}
	})
	perspectiveCompletions := transitionsToJSON(req.PerspectiveCompletions, func(t wmodel.PerspectiveTransition) jsonPerspectiveTransition {
		return jsonPerspectiveTransition{
			StreamID: t.StreamID, PerspectiveName: t.PerspectiveName, LastEventID: t.LastEventID,
			Failed: t.Failed, Error: t.Error,
		}
	})

	var partitions any
	if len(req.Partitions) > 0 {
		partitions = req.Partitions
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT outbox_work, inbox_work, perspective_work
		FROM %s.process_work_batch(
			$1,$2,$3,$4,$5::jsonb,$6,$7,$8,
			$9::jsonb,$10,
			$11::jsonb,$12::jsonb,
			$13::jsonb,$14::jsonb,
			$15::jsonb,$16::jsonb
		)`, s.schema),
		req.Identity.InstanceID, req.Identity.ServiceName, req.Identity.HostName, req.Identity.ProcessID,
		mustMarshal(req.Identity.Metadata), req.Now, int32(req.LeaseDuration/time.Second), req.PartitionCount,
		mustMarshal(partitions), batchSize,
		mustMarshal(newOutbox), mustMarshal(newInbox),
		mustMarshal(outboxCompletions), mustMarshal(inboxCompletions),
		mustMarshal(perspectiveEventCompletions), mustMarshal(perspectiveCompletions),
	)

	var outboxWorkRaw, inboxWorkRaw, perspectiveWorkRaw []byte

	if err := row.Scan(&outboxWorkRaw, &inboxWorkRaw, &perspectiveWorkRaw); err != nil {
		wrapped := errors.Wrap(err, "workhub: process_work_batch")
		handleSpanError(&span, "process_work_batch round trip failed", wrapped)

		return wmodel.BatchResult{}, wrapped
	}

	var result wmodel.BatchResult

	var outboxWork []jsonOutboxWork
	if err := json.Unmarshal(outboxWorkRaw, &outboxWork); err != nil {
		wrapped := errors.Wrap(err, "workhub: decode outbox_work")
		handleSpanError(&span, "failed to decode outbox_work", wrapped)

		return wmodel.BatchResult{}, wrapped
	}

	for _, w := range outboxWork {
		result.OutboxWork = append(result.OutboxWork, wmodel.OutboxMessage{
			MessageID: w.MessageID, Destination: w.Destination, EventType: w.EventType,
			EnvelopeType: w.EnvelopeType, Envelope: toMap(w.Envelope), Metadata: toMap(w.Metadata),
			StreamID: w.StreamID, PartitionNumber: w.PartitionNumber, IsEvent: w.IsEvent,
			Status: w.Status, Attempts: w.Attempts, InstanceID: w.InstanceID,
			LeaseExpiry: w.LeaseExpiry, CreatedAt: w.CreatedAt,
		})
	}

	var inboxWork []jsonInboxWork
	if err := json.Unmarshal(inboxWorkRaw, &inboxWork); err != nil {
		wrapped := errors.Wrap(err, "workhub: decode inbox_work")
		handleSpanError(&span, "failed to decode inbox_work", wrapped)

		return wmodel.BatchResult{}, wrapped
	}

	for _, w := range inboxWork {
		result.InboxWork = append(result.InboxWork, wmodel.InboxMessage{
			MessageID: w.MessageID, Source: w.Source, Envelope: toMap(w.Envelope), StreamID: w.StreamID,
			Status: w.Status, Attempts: w.Attempts, InstanceID: w.InstanceID,
			LeaseExpiry: w.LeaseExpiry, ReceivedAt: w.ReceivedAt,
		})
	}

	var perspectiveWork []jsonPerspectiveEventWork
	if err := json.Unmarshal(perspectiveWorkRaw, &perspectiveWork); err != nil {
		wrapped := errors.Wrap(err, "workhub: decode perspective_work")
		handleSpanError(&span, "failed to decode perspective_work", wrapped)

		return wmodel.BatchResult{}, wrapped
	}

	for _, w := range perspectiveWork {
		result.PerspectiveWork = append(result.PerspectiveWork, wmodel.PerspectiveEventWork{
			EventWorkID: w.EventWorkID, StreamID: w.StreamID, PerspectiveName: w.PerspectiveName,
			EventID: w.EventID, SequenceNumber: w.SequenceNumber, EventType: w.EventType,
			EventData: toMap(w.EventData), Metadata: toMap(w.Metadata), Status: w.Status,
			Attempts: w.Attempts, InstanceID: w.InstanceID, LeaseExpiry: w.LeaseExpiry, CreatedAt: w.CreatedAt,
		})
	}

	span.SetAttributes(
		attribute.Int("workhub.outbox_work_count", len(result.OutboxWork)),
		attribute.Int("workhub.inbox_work_count", len(result.InboxWork)),
		attribute.Int("workhub.perspective_work_count", len(result.PerspectiveWork)),
	)
	span.SetStatus(codes.Ok, "")

	return result, nil
}

// handleSpanError records err on span and marks it failed, the same
// two-call shape account.postgresql.go's mopentelemetry.HandleSpanError
// helper uses.
func handleSpanError(span *trace.Span, message string, err error) {
	(*span).RecordError(err)
	(*span).SetStatus(codes.Error, message)
}

func transitionsToJSON[T any, J any](in []T, conv func(T) J) []J {
	if len(in) == 0 {
		return nil
	}

	out := make([]J, 0, len(in))
	for _, t := range in {
		out = append(out, conv(t))
	}

	return out
}

func mustMarshal(v any) []byte {
	if v == nil {
		return nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		// Every value passed here originates from Go structs/maps built by
		// this module; a marshal failure is a programming error, not a
		// runtime condition callers can recover from.
		panic(fmt.Sprintf("workhub: marshal batch argument: %v", err))
	}

	// A typed nil slice or map marshals to JSON null; send SQL NULL instead
	// so the batch function's IS NOT NULL guards skip the argument.
	if string(b) == "null" {
		return nil
	}

	return b
}

func toMap(v any) map[string]any {
	if v == nil {
		return nil
	}

	if m, ok := v.(map[string]any); ok {
		return m
	}

	return nil
}
