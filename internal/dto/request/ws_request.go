package request

// ClientEvent is an inbound websocket frame.
type ClientEvent struct {
	Type          string `json:"type"` // typing or read
	LastMessageID uint   `json:"last_message_id"`
}
