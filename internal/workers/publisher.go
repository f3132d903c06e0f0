// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package workers implements spec §4.5: the long-running polling loops
// driving the coordination store -- publisher, perspective, and
// transport-consumer -- grounded in the teacher's RedisQueueConsumer.Run
// ticker-plus-context.Done() loop shape.
package workers

import (
	"context"
	"encoding/json"
	"time"

	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/LerianStudio/workhub/internal/transport"
	"github.com/LerianStudio/workhub/internal/workcoordinator"
	"github.com/LerianStudio/workhub/pkg/wconstant"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// IdleReporter lets a worker announce it has observed three consecutive
// empty polls, the graceful-shutdown signal spec §4.5 and scenario 6
// describe.
type IdleReporter struct {
	emptyPolls int
}

// Observe records one poll's result-count and reports whether the worker
// should now be considered idle.
func (r *IdleReporter) Observe(resultCount int) bool {
	if resultCount == 0 {
		r.emptyPolls++
	} else {
		r.emptyPolls = 0
	}

	return r.emptyPolls >= wconstant.IdlePollThreshold
}

// Publisher claims outbox rows, hands them to a transport, and reports
// completion/failure on the *next* cycle's batched transitions (spec
// §4.5). Each row's destination string is resolved to a transport by
// Router.
type Publisher struct {
	strategy     *workcoordinator.Strategy
	router       Router
	logger       libLog.Logger
	pollInterval time.Duration
	idle         IdleReporter
	isIdle       bool

	// OnCycle, if set, is called after every cycle that completes without
	// error, reporting when it ran. admin.Server.NoteCycle is wired here
	// so /healthz's "age of last successful batch cycle" reflects this
	// worker's polling, not just the manual /internal/flush route.
	OnCycle func(at time.Time)
}

// Router resolves an outbox row's destination string to the transport
// that should publish it. A single-transport deployment can always return
// the same transport regardless of the destination argument.
type Router interface {
	Resolve(destination string) transport.Transport
}

// NewPublisher builds a Publisher.
func NewPublisher(strategy *workcoordinator.Strategy, router Router, logger libLog.Logger, pollInterval time.Duration) *Publisher {
	if pollInterval <= 0 {
		pollInterval = wconstant.DefaultPollInterval
	}

	return &Publisher{strategy: strategy, router: router, logger: logger, pollInterval: pollInterval}
}

// Run polls until ctx is cancelled. It is drain-then-stop: cancellation
// stops new claims but lets any handler invoked this cycle finish before
// returning (the in-flight publish calls below are synchronous, so the
// loop naturally waits for them).
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		if err := p.cycle(ctx); err != nil {
			p.logger.Errorf("workhub: publisher cycle: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Idle reports whether the publisher has seen three consecutive empty
// polls, for a graceful-shutdown waiter (scenario 6).
func (p *Publisher) Idle() bool {
	return p.isIdle
}

func (p *Publisher) cycle(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "workers.publisher_cycle")
	defer span.End()

	result, err := p.strategy.Flush(ctx)
	if err != nil {
		return err
	}

	p.isIdle = p.idle.Observe(len(result.OutboxWork))
	span.SetAttributes(attribute.Int("workhub.outbox_work_count", len(result.OutboxWork)))

	for _, w := range result.OutboxWork {
		env := wmodel.Envelope{MessageID: w.MessageID, EnvelopeType: w.EnvelopeType, Payload: w.Envelope}

		t := p.router.Resolve(w.Destination)
		if t == nil || !t.Ready(ctx) {
			// Leave it Claimed: the lease will expire and another cycle
			// (here or on another instance) retries it.
			continue
		}

		destination := destinationFromRaw(w.Destination)

		if err := t.Publish(ctx, env, destination); err != nil {
			p.strategy.ReportOutbox(wmodel.OutboxTransition{MessageID: w.MessageID, Failed: true, Error: err.Error()})
			continue
		}

		p.strategy.ReportOutbox(wmodel.OutboxTransition{MessageID: w.MessageID})
	}

	if p.OnCycle != nil {
		p.OnCycle(time.Now())
	}

	return nil
}

func destinationFromRaw(raw string) wmodel.Destination {
	var dest wmodel.Destination
	if err := json.Unmarshal([]byte(raw), &dest); err == nil && dest.Address != "" {
		return dest
	}

	return wmodel.Destination{Address: raw}
}
