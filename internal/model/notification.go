package model

import "time"

// notification types
const (
	NotifMention = "mention"
	NotifAiAlert = "AI_ALERT"
)

// Notification is owned by the notification collaborator; chat writes
// mention and moderation alerts. MessageID mirrors payload.message_id so
// mention notifications can be reconciled by message.
type Notification struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"column:user_id;index;not null"`
	NotifType string    `gorm:"column:notif_type;type:varchar(32);not null"`
	Title     string    `gorm:"column:title;type:varchar(128)"`
	Payload   string    `gorm:"column:payload;type:text;comment:json"`
	MessageID *uint     `gorm:"column:message_id;index"`
	IsSeen    bool      `gorm:"column:is_seen;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Notification) TableName() string {
	return "notification"
}

// feedback sources
const (
	FeedbackSourceReaction   = "reaction"
	FeedbackSourceModeration = "moderation"
)

// AiFeedback records reactions on AI output and moderation flags.
type AiFeedback struct {
	ID        uint      `gorm:"primaryKey"`
	MessageID uint      `gorm:"column:message_id;index;not null"`
	UserID    *uint     `gorm:"column:user_id;index"`
	Source    string    `gorm:"column:source;type:varchar(16);not null"`
	Reaction  string    `gorm:"column:reaction;type:varchar(16);not null"`
	Role      string    `gorm:"column:role;type:varchar(32)"`
	RoomType  string    `gorm:"column:room_type;type:varchar(16)"`
	ClinicID  *uint     `gorm:"column:clinic_id"`
	Severity  string    `gorm:"column:severity;type:varchar(16)"`
	Reason    string    `gorm:"column:reason;type:varchar(255)"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (AiFeedback) TableName() string {
	return "ai_feedback"
}
