// Package protocol defines the binary input-event frames received from the
// remote sender and the JSON messages pushed to status websocket clients.
package protocol

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeStatus is pushed to clients whenever the relay status changes
	TypeStatus MessageType = "status"

	// TypeStatusRequest is sent by a client to get the current status immediately
	TypeStatusRequest MessageType = "status_req"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// StatusPayload is the payload for TypeStatus
type StatusPayload struct {
	Mode       string `json:"mode"`   // "output" or "surface"
	Remote     string `json:"remote"` // sender address as configured
	Connected  bool   `json:"connected"`
	Frames     uint64 `json:"frames"`
	Skipped    uint64 `json:"skipped"`
	Reconnects uint64 `json:"reconnects"`
}
