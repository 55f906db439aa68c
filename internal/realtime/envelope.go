package realtime

import "encoding/json"

// EventError is emitted on the requesting socket for every failure.
const EventError = "error"

// Inbound is a client frame: {"event": "...", "data": {...}}.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Payload is the body of every server frame.
type Payload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Outbound is a server frame: {"event": "...", "data": Payload}.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(Outbound{Event: event, Data: payload})
}
