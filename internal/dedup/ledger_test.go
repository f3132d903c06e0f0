// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package dedup

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return New(client, 0, nil)
}

func TestLedger_NilLedgerNeverReportsSeen(t *testing.T) {
	var l *Ledger

	require.False(t, l.SeenRecently(context.Background(), "m1"))
	l.MarkSeen(context.Background(), "m1") // must not panic
}

func TestLedger_MarkThenSeenRecently(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.False(t, l.SeenRecently(ctx, "m1"))

	l.MarkSeen(ctx, "m1")

	require.True(t, l.SeenRecently(ctx, "m1"))
	require.False(t, l.SeenRecently(ctx, "m2"))
}
