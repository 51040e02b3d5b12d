package request

// AttachmentRequest references already uploaded content.
type AttachmentRequest struct {
	URL  string `json:"url" binding:"required,max=512"`
	Name string `json:"name" binding:"max=255"`
	Type string `json:"type" binding:"required,oneof=file image audio"`
}

// SendMessageRequest posts a message into a room.
// Used by:
//   - handler/message_handler.go: SendMessage
//   - service/message: Send
type SendMessageRequest struct {
	Content         string              `json:"content" binding:"max=10000"`
	MentionUserIDs  []uint              `json:"mention_user_ids"`
	ParentMessageID *uint               `json:"parent_message_id"`
	Attachments     []AttachmentRequest `json:"attachments" binding:"omitempty,max=10,dive"`
}

// ReactRequest toggles a reaction.
type ReactRequest struct {
	Reaction string `json:"reaction" binding:"required,oneof=like dislike"`
}
