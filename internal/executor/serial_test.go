// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialExecutor_FIFOWithinStream(t *testing.T) {
	e := NewSerialExecutor(16)
	defer e.Stop()

	var mu sync.Mutex
	var order []int

	ctx := context.Background()

	for i := 0; i < 20; i++ {
		i := i
		_, err := e.Submit(ctx, func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()

			return nil
		})
		require.NoError(t, err)
	}

	// Drain: submit a sentinel job and wait for it so we know all prior
	// jobs already ran (FIFO guarantees the sentinel runs last).
	h, err := e.Submit(ctx, func(context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, h.Wait(ctx))

	mu.Lock()
	defer mu.Unlock()

	for i, v := range order {
		assert.Equal(t, i, v, "serial executor must preserve submission order")
	}
}

// TestSerialExecutor_CrossStreamInterleaving exercises scenario 5 from
// spec §8: two independent streams may interleave freely, but each must
// individually observe strict order.
func TestSerialExecutor_CrossStreamInterleaving(t *testing.T) {
	fleet := NewFleet(16, time.Minute)
	defer fleet.StopAll()

	ctx := context.Background()

	var mu sync.Mutex
	seenA, seenB := make([]int, 0, 100), make([]int, 0, 100)

	var wg sync.WaitGroup

	submit := func(stream string, n int, dst *[]int) {
		defer wg.Done()

		for i := 0; i < n; i++ {
			i := i

			h, err := fleet.Submit(ctx, stream, func(context.Context) error {
				mu.Lock()
				*dst = append(*dst, i)
				mu.Unlock()

				return nil
			})
			require.NoError(t, err)
			require.NoError(t, h.Wait(ctx))
		}
	}

	wg.Add(2)
	go submit("S1", 100, &seenA)
	go submit("S2", 100, &seenB)
	wg.Wait()

	for i, v := range seenA {
		assert.Equal(t, i, v)
	}

	for i, v := range seenB {
		assert.Equal(t, i, v)
	}
}

func TestSerialExecutor_HandleReturnsJobError(t *testing.T) {
	e := NewSerialExecutor(4)
	defer e.Stop()

	ctx := context.Background()
	wantErr := assert.AnError

	h, err := e.Submit(ctx, func(context.Context) error { return wantErr })
	require.NoError(t, err)
	assert.Equal(t, wantErr, h.Wait(ctx))
}

func TestFleet_EvictIdleRemovesUnusedExecutors(t *testing.T) {
	fleet := NewFleet(4, time.Millisecond)
	ctx := context.Background()

	h, err := fleet.Submit(ctx, "stream-a", func(context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, h.Wait(ctx))

	time.Sleep(5 * time.Millisecond)
	fleet.EvictIdle()

	fleet.mu.Lock()
	_, exists := fleet.executors["stream-a"]
	fleet.mu.Unlock()

	assert.False(t, exists, "idle executor should have been evicted")
}
