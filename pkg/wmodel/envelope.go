// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package wmodel holds the shared wire and domain types exchanged between
// the dispatcher, the work coordinator strategy, the workers and the
// transport layer. Types here are plain data: no behavior beyond small
// helpers, so they stay trivially JSON round-trippable.
package wmodel

import (
	"time"

	"github.com/LerianStudio/workhub/pkg/wconstant"
)

// Hop records one traversal of an envelope by a service instance. Hops are
// kept as a flat slice, never a pointer graph: Current marks the hop being
// produced right now, Causation marks everything retained for tracing.
type Hop struct {
	Type            wconstant.HopType `json:"type"`
	ServiceInstance string            `json:"serviceInstance"`
	Timestamp       time.Time         `json:"timestamp"`
	CorrelationID   string            `json:"correlationId,omitempty"`
	CausationID     string            `json:"causationId,omitempty"`
	Topic           string            `json:"topic,omitempty"`
	StreamKey       string            `json:"streamKey,omitempty"`
	PartitionIndex  *int32            `json:"partitionIndex,omitempty"`
	SequenceNumber  *int64            `json:"sequenceNumber,omitempty"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
}

// DecisionTrailEntry records one policy evaluation against an envelope.
// It is diagnostic-only (§9 open question 3): transports may elide it.
type DecisionTrailEntry struct {
	PolicyName string `json:"policyName"`
	Matched    bool   `json:"matched"`
	Error      string `json:"error,omitempty"`
}

// Envelope is the wire format exchanged between dispatcher, outbox/inbox
// and transports. MessageId, Payload and Hops are the mandatory wire
// fields; DecisionTrail is carried in-process only: its json:"-" tag keeps
// it out of every JSON encoding.
type Envelope struct {
	MessageID    string         `json:"messageId"`
	EnvelopeType string         `json:"envelopeType"`
	Payload      any            `json:"payload"`
	Hops         []Hop          `json:"hops"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	DecisionTrail []DecisionTrailEntry `json:"-"`
}

// CurrentHop returns the hop marked Current, if any.
func (e *Envelope) CurrentHop() *Hop {
	for i := range e.Hops {
		if e.Hops[i].Type == wconstant.HopCurrent {
			return &e.Hops[i]
		}
	}

	return nil
}

// AppendHop demotes any existing Current hop to Causation and appends h as
// the new Current hop.
func (e *Envelope) AppendHop(h Hop) {
	for i := range e.Hops {
		if e.Hops[i].Type == wconstant.HopCurrent {
			e.Hops[i].Type = wconstant.HopCausation
		}
	}

	h.Type = wconstant.HopCurrent
	e.Hops = append(e.Hops, h)
}

// Destination names a transport-level address. Metadata is transport
// specific: consumer group, subscription name, SQL filter, partition.
type Destination struct {
	Address    string         `json:"address"`
	RoutingKey string         `json:"routingKey,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// DeliveryReceipt is what the dispatcher hands back to callers. Callers
// never see raw store or transport errors; Error carries the normalized
// text when Status is Failed.
type DeliveryReceipt struct {
	MessageID string                    `json:"messageId"`
	Status    wconstant.DeliveryStatus  `json:"status"`
	Error     string                    `json:"error,omitempty"`
}
