// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	libZap "github.com/LerianStudio/lib-commons/v2/commons/zap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/LerianStudio/workhub/internal/association"
	"github.com/LerianStudio/workhub/internal/executor"
	mock "github.com/LerianStudio/workhub/internal/gen/mock/dispatcher"
	"github.com/LerianStudio/workhub/internal/policy"
	"github.com/LerianStudio/workhub/pkg/wconstant"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

func newDispatcher(t *testing.T, flusher Flusher, receptors map[string]Receptor) *Dispatcher {
	t.Helper()

	logger, err := libZap.InitializeLoggerWithError()
	require.NoError(t, err)

	registry := association.NewRegistry(nil)
	engine := policy.NewEngine(nil)
	fleet := executor.NewFleet(4, time.Minute)
	t.Cleanup(fleet.StopAll)

	return New("instance-1", registry, engine, receptors, fleet, flusher, logger)
}

func TestDispatcher_CommandWithoutReceptorEnqueuesOutbox(t *testing.T) {
	ctrl := gomock.NewController(t)
	flusher := mock.NewMockFlusher(ctrl)

	var captured wmodel.NewOutboxRow

	flusher.EXPECT().
		EnqueueOutbox(gomock.Any()).
		Do(func(row wmodel.NewOutboxRow) { captured = row }).
		Times(1)

	d := newDispatcher(t, flusher, nil)

	receipt, err := d.DispatchCommand(context.Background(), "CreateOrder", "stream-1", map[string]any{"id": 1})
	require.NoError(t, err)

	assert.Equal(t, wconstant.DeliveryQueued, receipt.Status)
	assert.False(t, captured.IsEvent)
	assert.Equal(t, "stream-1", captured.StreamID)
	assert.Equal(t, "CreateOrder", captured.EnvelopeType)
}

func TestDispatcher_EventAlwaysEnqueuesNeverRunsLocally(t *testing.T) {
	ctrl := gomock.NewController(t)
	flusher := mock.NewMockFlusher(ctrl)

	var captured wmodel.NewOutboxRow

	flusher.EXPECT().
		EnqueueOutbox(gomock.Any()).
		Do(func(row wmodel.NewOutboxRow) { captured = row }).
		Times(1)

	receptorCalled := false
	receptors := map[string]Receptor{
		"OrderCreated": ReceptorFunc(func(context.Context, string, any) error {
			receptorCalled = true
			return nil
		}),
	}

	d := newDispatcher(t, flusher, receptors)

	receipt, err := d.DispatchEvent(context.Background(), "OrderCreated", "stream-1", map[string]any{"id": 1})
	require.NoError(t, err)

	assert.Equal(t, wconstant.DeliveryQueued, receipt.Status)
	assert.True(t, captured.IsEvent)
	assert.False(t, receptorCalled, "events must never execute a local receptor in the publish path")
}

func TestDispatcher_CommandWithReceptorRunsInlineAndNeverEnqueues(t *testing.T) {
	ctrl := gomock.NewController(t)
	flusher := mock.NewMockFlusher(ctrl)
	flusher.EXPECT().EnqueueOutbox(gomock.Any()).Times(0)

	receptors := map[string]Receptor{
		"CreateOrder": ReceptorFunc(func(context.Context, string, any) error { return nil }),
	}

	d := newDispatcher(t, flusher, receptors)

	receipt, err := d.DispatchCommand(context.Background(), "CreateOrder", "stream-1", map[string]any{"id": 1})
	require.NoError(t, err)

	assert.Equal(t, wconstant.DeliveryDelivered, receipt.Status)
}

func TestDispatcher_CommandWithFailingReceptorReportsFailedWithoutError(t *testing.T) {
	ctrl := gomock.NewController(t)
	flusher := mock.NewMockFlusher(ctrl)
	flusher.EXPECT().EnqueueOutbox(gomock.Any()).Times(0)

	receptors := map[string]Receptor{
		"CreateOrder": ReceptorFunc(func(context.Context, string, any) error { return errors.New("boom") }),
	}

	d := newDispatcher(t, flusher, receptors)

	receipt, err := d.DispatchCommand(context.Background(), "CreateOrder", "stream-1", map[string]any{"id": 1})
	require.NoError(t, err)

	assert.Equal(t, wconstant.DeliveryFailed, receipt.Status)
	assert.Equal(t, "boom", receipt.Error)
}
