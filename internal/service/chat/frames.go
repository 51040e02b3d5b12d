package chat

import (
	"encoding/json"

	"clinic_chat_server/internal/dto/respond"
)

type connectedFrame struct {
	Type   string `json:"type"`
	RoomID uint   `json:"room_id"`
}

type messageFrame struct {
	Type    string                 `json:"type"`
	Message respond.MessagePayload `json:"message"`
}

type typingFrame struct {
	Type   string `json:"type"`
	RoomID uint   `json:"room_id"`
	UserID uint   `json:"user_id"`
}

type reactionFrame struct {
	Type   string `json:"type"`
	RoomID uint   `json:"room_id"`
	respond.ReactRespond
}

type readFrame struct {
	Type              string `json:"type"`
	RoomID            uint   `json:"room_id"`
	UserID            uint   `json:"user_id"`
	LastReadMessageID uint   `json:"last_read_message_id"`
}

// MessageEvent wraps a serialized message; UserID is the sender, if any.
func MessageEvent(roomID uint, payload respond.MessagePayload) (Event, error) {
	ev := Event{Type: EventMessage, RoomID: roomID, MessageID: payload.ID}
	if payload.Sender != nil {
		ev.UserID = payload.Sender.ID
	}
	return withFrame(ev, messageFrame{Type: EventMessage, Message: payload})
}

// TypingEvent is ephemeral and never reaches the typist.
func TypingEvent(roomID, userID uint) (Event, error) {
	return withFrame(Event{Type: EventTyping, RoomID: roomID, UserID: userID},
		typingFrame{Type: EventTyping, RoomID: roomID, UserID: userID})
}

// ReactionEvent carries the actor and the message counts after the toggle.
func ReactionEvent(roomID uint, delta respond.ReactRespond) (Event, error) {
	return withFrame(Event{Type: EventReaction, RoomID: roomID, UserID: delta.UserID, MessageID: delta.MessageID},
		reactionFrame{Type: EventReaction, RoomID: roomID, ReactRespond: delta})
}

// ReadEvent reports a cursor move.
func ReadEvent(roomID, userID, lastRead uint) (Event, error) {
	return withFrame(Event{Type: EventRead, RoomID: roomID, UserID: userID},
		readFrame{Type: EventRead, RoomID: roomID, UserID: userID, LastReadMessageID: lastRead})
}

func connectedEvent(roomID uint) (Event, error) {
	return withFrame(Event{Type: EventConnected, RoomID: roomID}, connectedFrame{Type: EventConnected, RoomID: roomID})
}

func withFrame(ev Event, frame any) (Event, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return ev, err
	}
	ev.Frame = data
	return ev, nil
}
