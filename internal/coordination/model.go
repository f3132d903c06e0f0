// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package coordination owns the durable state machine: the SQL schema and
// the single process_work_batch round trip every worker drives once per
// polling cycle.
package coordination

import "time"

// jsonOutboxNew and the other json* types are the wire shape the batch
// function expects inside its JSONB array parameters. They exist
// separately from pkg/wmodel so the JSON field names (snake_case, matching
// the SQL column names) never leak into the rest of the module.
type jsonOutboxNew struct {
	MessageID       string `json:"message_id"`
	Destination     string `json:"destination"`
	EventType       string `json:"event_type"`
	EnvelopeType    string `json:"envelope_type"`
	Envelope        any    `json:"envelope"`
	Metadata        any    `json:"metadata,omitempty"`
	StreamID        string `json:"stream_id"`
	PartitionNumber int32  `json:"partition_number"`
	IsEvent         bool   `json:"is_event"`
}

type jsonInboxNew struct {
	MessageID string `json:"message_id"`
	Source    string `json:"source"`
	Envelope  any    `json:"envelope"`
	StreamID  string `json:"stream_id"`
}

type jsonTransition struct {
	RowID  string `json:"row_id"`
	Failed bool   `json:"failed"`
	Error  string `json:"error,omitempty"`
}

type jsonPerspectiveTransition struct {
	StreamID        string `json:"stream_id"`
	PerspectiveName string `json:"perspective_name"`
	LastEventID     string `json:"last_event_id"`
	Failed          bool   `json:"failed"`
	Error           string `json:"error,omitempty"`
}

type jsonOutboxWork struct {
	MessageID       string     `json:"message_id"`
	Destination     string     `json:"destination"`
	EventType       string     `json:"event_type"`
	EnvelopeType    string     `json:"envelope_type"`
	Envelope        any        `json:"envelope"`
	Metadata        any        `json:"metadata"`
	StreamID        string     `json:"stream_id"`
	PartitionNumber int32      `json:"partition_number"`
	IsEvent         bool       `json:"is_event"`
	Status          int32      `json:"status"`
	Attempts        int32      `json:"attempts"`
	InstanceID      *string    `json:"instance_id"`
	LeaseExpiry     *time.Time `json:"lease_expiry"`
	CreatedAt       time.Time  `json:"created_at"`
}

type jsonInboxWork struct {
	MessageID   string     `json:"message_id"`
	Source      string     `json:"source"`
	Envelope    any        `json:"envelope"`
	StreamID    string     `json:"stream_id"`
	Status      int32      `json:"status"`
	Attempts    int32      `json:"attempts"`
	InstanceID  *string    `json:"instance_id"`
	LeaseExpiry *time.Time `json:"lease_expiry"`
	ReceivedAt  time.Time  `json:"received_at"`
}

type jsonPerspectiveEventWork struct {
	EventWorkID     string     `json:"event_work_id"`
	StreamID        string     `json:"stream_id"`
	PerspectiveName string     `json:"perspective_name"`
	EventID         string     `json:"event_id"`
	SequenceNumber  int64      `json:"sequence_number"`
	EventType       string     `json:"event_type"`
	EventData       any        `json:"event_data"`
	Metadata        any        `json:"metadata"`
	Status          int32      `json:"status"`
	Attempts        int32      `json:"attempts"`
	InstanceID      *string    `json:"instance_id"`
	LeaseExpiry     *time.Time `json:"lease_expiry"`
	CreatedAt       time.Time  `json:"created_at"`
}
