// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	libZap "github.com/LerianStudio/lib-commons/v2/commons/zap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/workhub/internal/executor"
	"github.com/LerianStudio/workhub/internal/workcoordinator"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

func TestPerspective_ExecutesRunnerAndReportsCompletion(t *testing.T) {
	caller := &sequencedBatchCaller{
		results: []wmodel.BatchResult{
			{PerspectiveWork: []wmodel.PerspectiveEventWork{
				{EventWorkID: "w1", StreamID: "s1", PerspectiveName: "inventory", EventID: "e1"},
			}},
		},
	}

	logger, err := libZap.InitializeLoggerWithError()
	require.NoError(t, err)

	strategy := workcoordinator.New(caller, wmodel.InstanceIdentity{InstanceID: "i1"}, 0, logger)

	var mu sync.Mutex
	var ran []string

	runners := RunnerRegistry{
		"inventory": RunnerFunc(func(_ context.Context, w wmodel.PerspectiveEventWork) error {
			mu.Lock()
			ran = append(ran, w.EventWorkID)
			mu.Unlock()

			return nil
		}),
	}

	fleet := executor.NewFleet(8, time.Minute)
	defer fleet.StopAll()

	p := NewPerspective(strategy, runners, fleet, logger, time.Millisecond)
	require.NoError(t, p.cycle(context.Background()))

	mu.Lock()
	assert.Equal(t, []string{"w1"}, ran)
	mu.Unlock()

	require.NoError(t, p.cycle(context.Background()))
	require.Len(t, caller.reports, 0) // perspective completions land in PerspectiveEventCompletions, checked below
	assert.Equal(t, 2, caller.calls)
	require.Len(t, caller.perspectiveReports, 1)
	assert.Equal(t, "w1", caller.perspectiveReports[0].EventWorkID)
	assert.False(t, caller.perspectiveReports[0].Failed)
}

func TestPerspective_MissingRunnerReportsFailure(t *testing.T) {
	caller := &sequencedBatchCaller{
		results: []wmodel.BatchResult{
			{PerspectiveWork: []wmodel.PerspectiveEventWork{
				{EventWorkID: "w1", StreamID: "s1", PerspectiveName: "unregistered", EventID: "e1"},
			}},
		},
	}

	logger, err := libZap.InitializeLoggerWithError()
	require.NoError(t, err)

	strategy := workcoordinator.New(caller, wmodel.InstanceIdentity{InstanceID: "i1"}, 0, logger)
	fleet := executor.NewFleet(8, time.Minute)
	defer fleet.StopAll()

	p := NewPerspective(strategy, RunnerRegistry{}, fleet, logger, time.Millisecond)
	require.NoError(t, p.cycle(context.Background()))

	// The failure is reported on the next cycle's flush.
	require.NoError(t, p.cycle(context.Background()))
	require.Len(t, caller.perspectiveReports, 1)
	assert.True(t, caller.perspectiveReports[0].Failed)
}

func TestPerspective_IdleAfterThreshold(t *testing.T) {
	caller := &sequencedBatchCaller{}
	logger, err := libZap.InitializeLoggerWithError()
	require.NoError(t, err)

	strategy := workcoordinator.New(caller, wmodel.InstanceIdentity{InstanceID: "i1"}, 0, logger)
	fleet := executor.NewFleet(8, time.Minute)
	defer fleet.StopAll()

	p := NewPerspective(strategy, RunnerRegistry{}, fleet, logger, time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.cycle(context.Background()))
	}

	assert.True(t, p.Idle())
}
