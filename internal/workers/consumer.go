// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package workers

import (
	"context"
	"fmt"

	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"
	"github.com/google/uuid"

	"github.com/LerianStudio/workhub/internal/association"
	"github.com/LerianStudio/workhub/internal/dedup"
	"github.com/LerianStudio/workhub/internal/dispatcher"
	"github.com/LerianStudio/workhub/internal/transport"
	"github.com/LerianStudio/workhub/internal/workcoordinator"
	"github.com/LerianStudio/workhub/pkg/wconstant"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// TransportConsumer subscribes to configured transports; on receipt it
// deserializes the envelope, checks the message_id dedup ledger (via
// wh_dedup_ledger, enforced in the batch function's INSERT ... ON CONFLICT
// DO NOTHING), and either runs a local receptor (commands) or buffers an
// inbox row for the next Flush (events). The batch function records that
// row in wh_inbox and wh_dedup_ledger only; it does not copy it into the
// event store or create perspective work from it. Spec §4.5.
type TransportConsumer struct {
	strategy  *workcoordinator.Strategy
	registry  *association.Registry
	receptors map[string]dispatcher.Receptor
	ledger    *dedup.Ledger
	logger    libLog.Logger
	subs      []transport.Subscription
}

// NewTransportConsumer builds a TransportConsumer. ledger may be nil -- it
// is a latency optimization ahead of the authoritative Postgres dedup, not
// a requirement (see internal/dedup).
func NewTransportConsumer(strategy *workcoordinator.Strategy, registry *association.Registry, receptors map[string]dispatcher.Receptor, ledger *dedup.Ledger, logger libLog.Logger) *TransportConsumer {
	return &TransportConsumer{strategy: strategy, registry: registry, receptors: receptors, ledger: ledger, logger: logger}
}

// Subscribe registers this consumer's Handle method against t/destination
// and remembers the Subscription so Pause/Resume/Stop can fan out to
// every transport this worker is subscribed to.
func (c *TransportConsumer) Subscribe(ctx context.Context, t transport.Transport, destination wmodel.Destination) error {
	sub, err := t.Subscribe(ctx, destination, c.Handle)
	if err != nil {
		return fmt.Errorf("workhub: subscribe %s: %w", destination.Address, err)
	}

	c.subs = append(c.subs, sub)

	return nil
}

// Handle implements transport.Handler: a command with a local receptor
// registered runs inline; an event is buffered as an inbox row and written
// to wh_inbox on the next Flush (no event-store row or perspective work is
// created from it).
func (c *TransportConsumer) Handle(ctx context.Context, env wmodel.Envelope) error {
	streamKey := ""
	if hop := env.CurrentHop(); hop != nil {
		streamKey = hop.StreamKey
	}

	if c.registry.HasReceptor(env.EnvelopeType) {
		receptor, ok := c.receptors[env.EnvelopeType]
		if !ok {
			return fmt.Errorf("workhub: association declares a receptor for %q but none is registered locally", env.EnvelopeType)
		}

		return receptor.Handle(ctx, env.EnvelopeType, env.Payload)
	}

	// wh_inbox.stream_id is a native UUID column; process_work_batch casts
	// the JSON field with (n->>'stream_id')::UUID and a non-UUID value
	// fails that cast, rolling back the whole batch -- not just this row.
	// A host routing a non-UUID stream key is a contract violation caught
	// here, before the row ever reaches the batch function.
	if _, err := uuid.Parse(streamKey); err != nil {
		return fmt.Errorf("workhub: stream key %q for message %s is not a UUID: %w", streamKey, env.MessageID, err)
	}

	if c.ledger.SeenRecently(ctx, env.MessageID) {
		return nil
	}

	payload, _ := env.Payload.(map[string]any)

	c.strategy.EnqueueInbox(wmodel.NewInboxRow{
		MessageID: env.MessageID,
		Source:    "transport",
		Envelope:  payload,
		StreamID:  streamKey,
	})

	c.ledger.MarkSeen(ctx, env.MessageID)

	return nil
}

// Pause pauses every subscription this worker holds.
func (c *TransportConsumer) Pause(ctx context.Context) error {
	for _, s := range c.subs {
		if err := s.Pause(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Resume resumes every subscription this worker holds.
func (c *TransportConsumer) Resume(ctx context.Context) error {
	for _, s := range c.subs {
		if err := s.Resume(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Stop drains pending work before terminating subscriptions, per spec
// §4.5's "the stop sequence drains pending work before terminating
// subscriptions": Pause stops new deliveries, an explicit Flush persists
// anything already buffered, then every subscription is disposed.
func (c *TransportConsumer) Stop(ctx context.Context) error {
	if err := c.Pause(ctx); err != nil {
		c.logger.Warnf("workhub: pause subscriptions during stop: %v", err)
	}

	if _, err := c.strategy.Flush(ctx, workcoordinator.WithBatchSize(wconstant.DefaultBatchSize)); err != nil {
		c.logger.Warnf("workhub: drain flush during stop: %v", err)
	}

	for _, s := range c.subs {
		if err := s.Dispose(ctx); err != nil {
			return err
		}
	}

	return nil
}
