// Package notification builds the rows chat hands to the notification
// collaborator.
package notification

import (
	"encoding/json"

	"clinic_chat_server/internal/model"
)

type mentionPayload struct {
	RoomID    uint `json:"room_id"`
	MessageID uint `json:"message_id"`
}

// AlertPayload describes a moderation flag.
type AlertPayload struct {
	MessageID uint   `json:"message_id"`
	RoomID    uint   `json:"room_id"`
	ClinicID  *uint  `json:"clinic_id"`
	Reason    string `json:"reason"`
	Severity  string `json:"severity"`
}

// Mention builds the "you were mentioned" notification.
func Mention(userID, roomID, messageID uint) model.Notification {
	mid := messageID
	return model.Notification{
		UserID:    userID,
		NotifType: model.NotifMention,
		Title:     "You were mentioned",
		Payload:   encode(mentionPayload{RoomID: roomID, MessageID: messageID}),
		MessageID: &mid,
	}
}

// AiAlert builds a moderation alert for one recipient.
func AiAlert(userID uint, p AlertPayload) model.Notification {
	mid := p.MessageID
	return model.Notification{
		UserID:    userID,
		NotifType: model.NotifAiAlert,
		Title:     "Message flagged for review",
		Payload:   encode(p),
		MessageID: &mid,
	}
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
