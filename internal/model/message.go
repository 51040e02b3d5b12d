package model

import "time"

// attachment types
const (
	AttachmentFile  = "file"
	AttachmentImage = "image"
	AttachmentAudio = "audio"
)

// reactions
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// Message is append-only. Its auto-increment id is the only ordering key
// inside a room.
type Message struct {
	ID              uint      `gorm:"primaryKey"`
	RoomID          uint      `gorm:"column:room_id;index;not null"`
	SenderID        *uint     `gorm:"column:sender_id;index;comment:null for system messages"`
	Content         string    `gorm:"column:content;type:text"`
	IsAI            bool      `gorm:"column:is_ai;not null"`
	ParentMessageID *uint     `gorm:"column:parent_message_id"`
	CreatedAt       time.Time `gorm:"column:created_at;index"`
}

func (Message) TableName() string {
	return "message"
}

// MessageAttachment stores a reference to uploaded content.
type MessageAttachment struct {
	ID             uint      `gorm:"primaryKey"`
	MessageID      uint      `gorm:"column:message_id;index;not null"`
	AttachmentType string    `gorm:"column:attachment_type;type:varchar(16);not null"`
	URL            string    `gorm:"column:url;type:varchar(512);not null"`
	Name           string    `gorm:"column:name;type:varchar(255)"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (MessageAttachment) TableName() string {
	return "message_attachment"
}

// MessageMention tags a participant. RoomID is copied from the message so
// read reconciliation can filter by room without a join.
type MessageMention struct {
	ID              uint       `gorm:"primaryKey"`
	MessageID       uint       `gorm:"column:message_id;uniqueIndex:idx_mention_message_user;not null"`
	MentionedUserID uint       `gorm:"column:mentioned_user_id;uniqueIndex:idx_mention_message_user;index:idx_mention_user_room;not null"`
	RoomID          uint       `gorm:"column:room_id;index:idx_mention_user_room;not null"`
	SeenAt          *time.Time `gorm:"column:seen_at"`
}

func (MessageMention) TableName() string {
	return "message_mention"
}

// MessageReaction is one user's like or dislike on a message.
type MessageReaction struct {
	ID        uint      `gorm:"primaryKey"`
	MessageID uint      `gorm:"column:message_id;uniqueIndex:idx_reaction_message_user;not null"`
	UserID    uint      `gorm:"column:user_id;uniqueIndex:idx_reaction_message_user;not null"`
	Reaction  string    `gorm:"column:reaction;type:varchar(16);not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (MessageReaction) TableName() string {
	return "message_reaction"
}
