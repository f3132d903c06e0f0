// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package dedup is a Redis-backed fast path in front of the durable
// wh_dedup_ledger table (spec §3: "append-only; consulted before inbox
// insertion for configurable windows"). The coordination store's
// ON CONFLICT DO NOTHING on message_id is the authority P5 actually
// relies on; this package exists only to let a transport-consumer worker
// skip the round trip to Postgres for a message it has already seen
// inside the configured window, the same latency-saving role
// common/mredis.RedisConnection plays for the teacher's balance cache.
package dedup

import (
	"context"
	"fmt"
	"time"

	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"
	"github.com/redis/go-redis/v9"
)

// Ledger consults and records message_ids against a Redis SET-with-TTL
// window. A nil *Ledger is valid and always reports "not seen", so
// workers that run without Redis configured fall straight through to the
// Postgres-backed dedup the batch function already guarantees.
type Ledger struct {
	client *redis.Client
	window time.Duration
	logger libLog.Logger
}

// New wraps an already-connected redis.Client. window is how long a
// message_id is remembered before it is eligible to be treated as new
// again, mirroring the "configurable windows" language in spec §3.
func New(client *redis.Client, window time.Duration, logger libLog.Logger) *Ledger {
	return &Ledger{client: client, window: window, logger: logger}
}

func key(messageID string) string {
	return fmt.Sprintf("workhub:dedup:%s", messageID)
}

// SeenRecently reports whether messageID was marked within the
// configured window. A Redis error is logged and treated as "not seen" --
// this path is a latency optimization, never the source of truth, so a
// cache outage must never block inbox processing (§7's
// coordination-store-unavailable taxonomy only applies to Postgres).
func (l *Ledger) SeenRecently(ctx context.Context, messageID string) bool {
	if l == nil || l.client == nil {
		return false
	}

	n, err := l.client.Exists(ctx, key(messageID)).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.Warnf("workhub: dedup ledger lookup for %s: %v", messageID, err)
		}

		return false
	}

	return n > 0
}

// MarkSeen records messageID for the configured window. Errors are
// logged, not returned: a failed cache write only costs the next
// duplicate an extra (harmless) round trip to the authoritative ledger.
func (l *Ledger) MarkSeen(ctx context.Context, messageID string) {
	if l == nil || l.client == nil {
		return
	}

	if err := l.client.Set(ctx, key(messageID), 1, l.window).Err(); err != nil && l.logger != nil {
		l.logger.Warnf("workhub: dedup ledger mark for %s: %v", messageID, err)
	}
}
