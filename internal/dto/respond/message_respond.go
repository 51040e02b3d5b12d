package respond

import "time"

// SenderRespond is the public view of a message author.
type SenderRespond struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// AttachmentRespond is one attachment of a message.
type AttachmentRespond struct {
	ID   uint   `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ReactionSummary counts one reaction kind.
type ReactionSummary struct {
	Count int    `json:"count"`
	Users []uint `json:"users"`
}

// MessagePayload is the serialized message used by reads and broadcasts.
// Used by:
//   - service/message: List, Send
//   - service/chat: message events
type MessagePayload struct {
	ID              uint                       `json:"id"`
	RoomID          uint                       `json:"room_id"`
	Content         string                     `json:"content"`
	IsAI            bool                       `json:"is_ai"`
	CreatedAt       time.Time                  `json:"created_at"`
	ParentMessageID *uint                      `json:"parent_message_id"`
	Sender          *SenderRespond             `json:"sender"`
	Attachments     []AttachmentRespond        `json:"attachments"`
	Reactions       map[string]ReactionSummary `json:"reactions"`
	MyReaction      *string                    `json:"my_reaction"`
}

// SendMessageRespond answers a send.
type SendMessageRespond struct {
	MessageID    uint `json:"message_id"`
	Impersonated bool `json:"impersonated"`
}

// MessageListRespond is one page of a room.
type MessageListRespond struct {
	RoomID      uint             `json:"room_id"`
	Messages    []MessagePayload `json:"messages"`
	ReadOnly    bool             `json:"read_only"`
	ChatBlocked bool             `json:"chat_blocked"`
	BlockedBy   string           `json:"blocked_by,omitempty"` // me or other
	BlockedAt   *time.Time       `json:"blocked_at,omitempty"`
	CanUnblock  bool             `json:"can_unblock"`
}

// ReactionCounts is the reaction event delta.
type ReactionCounts struct {
	Like    int `json:"like"`
	Dislike int `json:"dislike"`
}

// ReactRespond answers a reaction toggle.
type ReactRespond struct {
	MessageID uint           `json:"message_id"`
	UserID    uint           `json:"user_id"`
	Reaction  *string        `json:"reaction"`
	Counts    ReactionCounts `json:"counts"`
}
