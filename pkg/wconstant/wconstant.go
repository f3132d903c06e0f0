// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package wconstant holds status bitfields, enums, and default tunables
// shared by every coordination-engine package.
package wconstant

import "time"

// Outbox status bits.
const (
	OutboxClaimed  = 1 << iota // 1
	OutboxInFlight             // 2
	OutboxCompleted
	OutboxFailed
	OutboxPoison
)

// Inbox status bits.
const (
	InboxClaimed = 1 << iota
	InboxProcessed
	InboxFailed
)

// Perspective-event status bits (work items claimed by the perspective worker).
const (
	PerspectiveEventClaimed = 1 << iota
	PerspectiveEventInFlight
	PerspectiveEventCompleted
	PerspectiveEventFailed
	PerspectiveEventPoison
)

// Receptor-processing status bits.
const (
	ReceptorClaimed = 1 << iota
	ReceptorInFlight
	ReceptorCompleted
	ReceptorFailed
)

// PerspectiveCheckpointStatus enumerates the checkpoint lifecycle.
type PerspectiveCheckpointStatus int16

const (
	CheckpointNone PerspectiveCheckpointStatus = iota
	CheckpointCompleted
	CheckpointFailed
	CheckpointBlocked = 4
)

// AssociationType distinguishes the two kinds of message association.
type AssociationType string

const (
	AssociationPerspective AssociationType = "perspective"
	AssociationReceptor    AssociationType = "receptor"
)

// HopType discriminates the flat hop array carried by an envelope.
type HopType string

const (
	HopCurrent   HopType = "current"
	HopCausation HopType = "causation"
)

// DeliveryStatus is the normalized outcome a dispatcher hands back to callers.
type DeliveryStatus string

const (
	DeliveryAccepted  DeliveryStatus = "accepted"
	DeliveryQueued    DeliveryStatus = "queued"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Default tunables. Callers override through Config, these are the fallback
// values applied when a zero value would otherwise be nonsensical.
const (
	DefaultInfrastructurePrefix = "wh_"
	DefaultPerspectivePrefix    = "wh_per_"
	DefaultLeaseDuration        = 30 * time.Second
	DefaultBatchSize            = 100
	DefaultPartitionCount       = 1
	DefaultMaxAttempts          = 8
	// DefaultMaxDataSizeBytes mirrors Postgres's TOAST threshold; envelopes
	// larger than this are subject to policy-configured size enforcement.
	DefaultMaxDataSizeBytes = 7000
	DefaultPollInterval     = 100 * time.Millisecond
	// IdlePollThreshold is the number of consecutive empty polls a worker
	// waits before it reports itself idle to a graceful-shutdown waiter.
	IdlePollThreshold = 3
)
