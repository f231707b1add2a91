package ws

import "grot_arena/internal/session"

// client → server
type Inbound struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// server → client
type Outbound struct {
	Type   string            `json:"type"`
	Event  *session.Event    `json:"event,omitempty"`
	Status *session.Status   `json:"status,omitempty"`
	Self   *session.Snapshot `json:"self,omitempty"`
	Error  string            `json:"error,omitempty"`
}
