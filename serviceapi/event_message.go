// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package serviceapi

import "encoding/json"

// Frame names used on the SSE and WebSocket transports. Log and custom event
// frames may repeat; exactly one of complete or error terminates every
// invocation.
const (
	EventStart    = "start"
	EventLog      = "log"
	EventEvent    = "event"
	EventComplete = "complete"
	EventError    = "error"
)

// EventMessage is the wire shape for WebSocket frames in both directions.
// Inbound, the only meaningful message is {"event":"start","data":<payload>}.
// Outbound, Event is one of log/event/complete/error; Type carries the custom
// event type token for event frames.
type EventMessage struct {
	Event string          `json:"event"`
	Type  string          `json:"type,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}
