// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package transport declares the abstraction spec §6 names: every wire
// transport (in-process, RabbitMQ, and -- left to concrete deployments --
// Kafka/Service Bus) exposes the same Publish/Subscribe/Subscription
// shape so workers never know which transport they are driving.
package transport

import (
	"context"

	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// Handler processes one received envelope. Returning an error leaves the
// message for transport-level redelivery semantics (e.g. a RabbitMQ nack).
type Handler func(ctx context.Context, env wmodel.Envelope) error

// Subscription is the handle returned by Subscribe. Pause/Resume let a
// transport-consumer worker stop without losing its position; Dispose
// tears the subscription down for good.
type Subscription interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Dispose(ctx context.Context) error
}

// Transport is the external collaborator spec §6 requires every wire
// driver to implement.
type Transport interface {
	// Publish delivers env to destination. Ready reports whether the
	// transport is currently able to accept publishes (spec §4.5's
	// "readiness check" the publisher worker performs before handing off).
	Publish(ctx context.Context, env wmodel.Envelope, destination wmodel.Destination) error
	Ready(ctx context.Context) bool
	Subscribe(ctx context.Context, destination wmodel.Destination, handler Handler) (Subscription, error)
}
