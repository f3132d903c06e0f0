// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package workers

import (
	"context"
	"fmt"
	"time"

	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/LerianStudio/workhub/internal/executor"
	"github.com/LerianStudio/workhub/internal/workcoordinator"
	"github.com/LerianStudio/workhub/pkg/wconstant"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// Runner is the host-supplied adapter between a perspective-event work
// item and the user's projection function: `{run(event_work, ctx) ->
// result}` per spec §9's interface-capability guidance.
type Runner interface {
	Run(ctx context.Context, work wmodel.PerspectiveEventWork) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, work wmodel.PerspectiveEventWork) error

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, work wmodel.PerspectiveEventWork) error {
	return f(ctx, work)
}

// RunnerRegistry resolves a perspective name to the Runner that should
// execute its work items. Built once at startup, per spec §9's
// "explicit startup-time initialization of immutable lookup tables".
type RunnerRegistry map[string]Runner

// Perspective claims perspective-event work items and executes the
// matching Runner inside a per-(stream_id, perspective_name) SerialExecutor,
// so runner invocations for one stream are never reordered relative to
// each other even though different streams run concurrently (spec §4.5,
// P1).
type Perspective struct {
	strategy     *workcoordinator.Strategy
	runners      RunnerRegistry
	fleet        *executor.Fleet
	logger       libLog.Logger
	pollInterval time.Duration
	idle         IdleReporter
	isIdle       bool

	// OnCycle, if set, is called after every cycle that completes without
	// error. See Publisher.OnCycle.
	OnCycle func(at time.Time)
}

// NewPerspective builds a Perspective worker.
func NewPerspective(strategy *workcoordinator.Strategy, runners RunnerRegistry, fleet *executor.Fleet, logger libLog.Logger, pollInterval time.Duration) *Perspective {
	if pollInterval <= 0 {
		pollInterval = wconstant.DefaultPollInterval
	}

	return &Perspective{strategy: strategy, runners: runners, fleet: fleet, logger: logger, pollInterval: pollInterval}
}

// Run polls until ctx is cancelled.
func (p *Perspective) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		if err := p.cycle(ctx); err != nil {
			p.logger.Errorf("workhub: perspective cycle: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Idle reports whether three consecutive polls returned no work.
func (p *Perspective) Idle() bool {
	return p.isIdle
}

func (p *Perspective) cycle(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "workers.perspective_cycle")
	defer span.End()

	result, err := p.strategy.Flush(ctx)
	if err != nil {
		return err
	}

	p.isIdle = p.idle.Observe(len(result.PerspectiveWork))
	span.SetAttributes(attribute.Int("workhub.perspective_work_count", len(result.PerspectiveWork)))

	handles := make([]*executor.Handle, 0, len(result.PerspectiveWork))
	works := make([]wmodel.PerspectiveEventWork, 0, len(result.PerspectiveWork))

	for _, w := range result.PerspectiveWork {
		w := w
		key := w.StreamID + "|" + w.PerspectiveName

		h, err := p.fleet.Submit(ctx, key, func(ctx context.Context) error {
			return p.execute(ctx, w)
		})
		if err != nil {
			p.logger.Errorf("workhub: submit perspective work %s: %v", w.EventWorkID, err)
			continue
		}

		handles = append(handles, h)
		works = append(works, w)
	}

	// Wait for every submission before the next Flush reports completions:
	// the batch function only ever hands back the *earliest* pending row
	// per (stream, perspective), so a stream's next row only becomes
	// claimable once this one's completion is reported.
	for i, h := range handles {
		if err := h.Wait(ctx); err != nil {
			p.logger.Warnf("workhub: perspective runner %s failed for %s: %v", works[i].PerspectiveName, works[i].EventWorkID, err)
		}
	}

	if p.OnCycle != nil {
		p.OnCycle(time.Now())
	}

	return nil
}

func (p *Perspective) execute(ctx context.Context, w wmodel.PerspectiveEventWork) error {
	runner, ok := p.runners[w.PerspectiveName]
	if !ok {
		err := fmt.Errorf("workhub: no runner registered for perspective %q", w.PerspectiveName)
		p.strategy.ReportPerspectiveEvent(wmodel.PerspectiveEventTransition{EventWorkID: w.EventWorkID, Failed: true, Error: err.Error()})
		p.strategy.ReportPerspective(wmodel.PerspectiveTransition{StreamID: w.StreamID, PerspectiveName: w.PerspectiveName, LastEventID: w.EventID, Failed: true, Error: err.Error()})

		return err
	}

	if err := runner.Run(ctx, w); err != nil {
		p.strategy.ReportPerspectiveEvent(wmodel.PerspectiveEventTransition{EventWorkID: w.EventWorkID, Failed: true, Error: err.Error()})
		p.strategy.ReportPerspective(wmodel.PerspectiveTransition{StreamID: w.StreamID, PerspectiveName: w.PerspectiveName, LastEventID: w.EventID, Failed: true, Error: err.Error()})

		return err
	}

	p.strategy.ReportPerspectiveEvent(wmodel.PerspectiveEventTransition{EventWorkID: w.EventWorkID})
	p.strategy.ReportPerspective(wmodel.PerspectiveTransition{StreamID: w.StreamID, PerspectiveName: w.PerspectiveName, LastEventID: w.EventID})

	return nil
}
