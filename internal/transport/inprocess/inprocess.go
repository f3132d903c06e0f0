// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package inprocess is an in-memory Transport for same-process command
// execution and for unit tests that exercise the publisher/transport-
// consumer workers without a real broker, grounded in spec §1's own
// mention of an "in-process" transport alongside RabbitMQ/Kafka/Service
// Bus.
package inprocess

import (
	"context"
	"sync"

	"github.com/LerianStudio/workhub/internal/transport"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// Transport delivers every Publish synchronously to every Subscriber
// registered against the same destination address.
type Transport struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	ready       bool
}

// New returns a ready in-process Transport.
func New() *Transport {
	return &Transport{subscribers: make(map[string][]*subscription), ready: true}
}

// SetReady lets tests simulate a transport outage (spec §7's "transient
// transport error" taxonomy entry).
func (t *Transport) SetReady(ready bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ready = ready
}

// Ready implements transport.Transport.
func (t *Transport) Ready(context.Context) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.ready
}

// Publish implements transport.Transport: it hands env to every active,
// non-paused subscription on destination.Address.
func (t *Transport) Publish(ctx context.Context, env wmodel.Envelope, destination wmodel.Destination) error {
	t.mu.RLock()
	if !t.ready {
		t.mu.RUnlock()
		return errNotReady
	}

	subs := append([]*subscription(nil), t.subscribers[destination.Address]...)
	t.mu.RUnlock()

	for _, s := range subs {
		if s.isPaused() {
			continue
		}

		if err := s.handler(ctx, env); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe implements transport.Transport.
func (t *Transport) Subscribe(_ context.Context, destination wmodel.Destination, handler transport.Handler) (transport.Subscription, error) {
	s := &subscription{handler: handler}

	t.mu.Lock()
	t.subscribers[destination.Address] = append(t.subscribers[destination.Address], s)
	t.mu.Unlock()

	return s, nil
}

type subscription struct {
	mu      sync.Mutex
	handler transport.Handler
	paused  bool
	done    bool
}

func (s *subscription) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.paused || s.done
}

func (s *subscription) Pause(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = true

	return nil
}

func (s *subscription) Resume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = false

	return nil
}

func (s *subscription) Dispose(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done = true

	return nil
}

type notReadyError struct{}

func (notReadyError) Error() string { return "workhub: in-process transport not ready" }

var errNotReady = notReadyError{}
