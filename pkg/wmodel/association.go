// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package wmodel

import "github.com/LerianStudio/workhub/pkg/wconstant"

// MessageAssociation declares that a given event type should be routed to
// a given perspective or receptor. message_type carries the full,
// version-qualified type string as seen on the wire; matching against it
// is fuzzy (see internal/association).
type MessageAssociation struct {
	MessageType     string                    `json:"messageType"`
	AssociationType wconstant.AssociationType `json:"associationType"`
	TargetName      string                    `json:"targetName"`
	ServiceName     string                    `json:"serviceName"`
}

// PerspectiveCheckpoint mirrors the (stream_id, perspective_name) durable
// progress row.
type PerspectiveCheckpoint struct {
	StreamID        string                             `json:"streamId"`
	PerspectiveName string                             `json:"perspectiveName"`
	LastEventID     *string                             `json:"lastEventId,omitempty"`
	Status          wconstant.PerspectiveCheckpointStatus `json:"status"`
	Error           *string                             `json:"error,omitempty"`
}
