// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package wmodel

import "time"

// InstanceIdentity identifies the service instance calling ProcessBatch.
// It is upserted as the service-instance heartbeat on every call.
type InstanceIdentity struct {
	InstanceID  string         `json:"instanceId"`
	ServiceName string         `json:"serviceName"`
	HostName    string         `json:"hostName"`
	ProcessID   int32          `json:"processId"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// OutboxMessage mirrors the outbox table row as returned to a caller.
type OutboxMessage struct {
	MessageID       string         `json:"messageId"`
	Destination     string         `json:"destination"`
	EventType       string         `json:"eventType"`
	EnvelopeType    string         `json:"envelopeType"`
	Envelope        map[string]any `json:"envelope"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	StreamID        string         `json:"streamId"`
	PartitionNumber int32          `json:"partitionNumber"`
	IsEvent         bool           `json:"isEvent"`
	Status          int32          `json:"status"`
	Attempts        int32          `json:"attempts"`
	InstanceID      *string        `json:"instanceId,omitempty"`
	LeaseExpiry     *time.Time     `json:"leaseExpiry,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// InboxMessage mirrors the inbox table row as returned to a caller.
type InboxMessage struct {
	MessageID   string         `json:"messageId"`
	Source      string         `json:"source"`
	Envelope    map[string]any `json:"envelope"`
	StreamID    string         `json:"streamId"`
	Status      int32          `json:"status"`
	Attempts    int32          `json:"attempts"`
	InstanceID  *string        `json:"instanceId,omitempty"`
	LeaseExpiry *time.Time     `json:"leaseExpiry,omitempty"`
	ReceivedAt  time.Time      `json:"receivedAt"`
}

// PerspectiveEventWork mirrors one claimed perspective_events row.
type PerspectiveEventWork struct {
	EventWorkID     string         `json:"eventWorkId"`
	StreamID        string         `json:"streamId"`
	PerspectiveName string         `json:"perspectiveName"`
	EventID         string         `json:"eventId"`
	SequenceNumber  int64          `json:"sequenceNumber"`
	EventType       string         `json:"eventType"`
	EventData       map[string]any `json:"eventData"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Status          int32          `json:"status"`
	Attempts        int32          `json:"attempts"`
	InstanceID      *string        `json:"instanceId,omitempty"`
	LeaseExpiry     *time.Time     `json:"leaseExpiry,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// OutboxTransition reports a completion or failure for a previously claimed
// outbox row.
type OutboxTransition struct {
	MessageID string `json:"messageId"`
	Failed    bool   `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// InboxTransition reports a completion or failure for a previously claimed
// inbox row.
type InboxTransition struct {
	MessageID string `json:"messageId"`
	Failed    bool   `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// PerspectiveEventTransition reports a completion or failure for a
// previously claimed perspective-event row.
type PerspectiveEventTransition struct {
	EventWorkID string `json:"eventWorkId"`
	Failed      bool   `json:"failed"`
	Error       string `json:"error,omitempty"`
}

// PerspectiveTransition reports a checkpoint-level completion or failure,
// independent of any single work row.
type PerspectiveTransition struct {
	StreamID        string `json:"streamId"`
	PerspectiveName string `json:"perspectiveName"`
	LastEventID     string `json:"lastEventId"`
	Failed          bool   `json:"failed"`
	Error           string `json:"error,omitempty"`
}

// NewOutboxRow is an outbox insert requested by the dispatcher or the work
// coordinator strategy, applied inside the same ProcessBatch round trip.
type NewOutboxRow struct {
	MessageID       string         `json:"messageId"`
	Destination     string         `json:"destination"`
	EventType       string         `json:"eventType"`
	EnvelopeType    string         `json:"envelopeType"`
	Envelope        map[string]any `json:"envelope"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	StreamID        string         `json:"streamId"`
	PartitionNumber int32          `json:"partitionNumber"`
	IsEvent         bool           `json:"isEvent"`
}

// NewInboxRow is an inbox insert requested by a transport-consumer worker.
type NewInboxRow struct {
	MessageID string         `json:"messageId"`
	Source    string         `json:"source"`
	Envelope  map[string]any `json:"envelope"`
	StreamID  string         `json:"streamId"`
}

// BatchRequest is the Go-side shape of everything process_work_batch
// accepts in one call.
type BatchRequest struct {
	Identity       InstanceIdentity
	Now            time.Time
	LeaseDuration  time.Duration
	PartitionCount int32
	Partitions     []int32
	BatchSize      int32

	NewOutbox []NewOutboxRow
	NewInbox  []NewInboxRow

	OutboxCompletions []OutboxTransition
	InboxCompletions  []InboxTransition

	PerspectiveEventCompletions []PerspectiveEventTransition
	PerspectiveCompletions      []PerspectiveTransition
}

// BatchResult is the Go-side shape of everything process_work_batch
// returns in one call.
type BatchResult struct {
	OutboxWork      []OutboxMessage
	InboxWork       []InboxMessage
	PerspectiveWork []PerspectiveEventWork
}
