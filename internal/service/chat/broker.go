// Package chat is the realtime fan-out: a room keyed hub of websocket
// sessions fed by a broker, so every instance delivers every room event to
// its own sessions.
package chat

import (
	"context"
	"encoding/json"
)

// event types
const (
	EventConnected = "connected"
	EventMessage   = "message"
	EventTyping    = "typing"
	EventReaction  = "reaction"
	EventRead      = "read"
)

// Event is the broker envelope. Frame holds the JSON sent to clients; the
// other fields route it.
type Event struct {
	Type   string `json:"type"`
	RoomID uint   `json:"room_id"`
	// UserID is the acting user: message sender, typist, reactor or reader.
	UserID    uint            `json:"user_id"`
	MessageID uint            `json:"message_id,omitempty"`
	Frame     json.RawMessage `json:"frame"`
}

// MessageBroker moves events between instances.
// Implementations: ChannelBroker (single process), KafkaBroker, RedisBroker.
type MessageBroker interface {
	// Publish hands ev to the transport. Delivery is at most once.
	Publish(ctx context.Context, ev Event) error
	// Start consumes events into the hub until ctx is done.
	Start(ctx context.Context)
	Close() error
}
