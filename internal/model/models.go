package model

// All lists every table the chat server migrates, directory tables included.
func All() []any {
	return []any{
		&User{},
		&Clinic{},
		&ClinicUser{},
		&RolePermission{},
		&UserPermission{},
		&ChatRoom{},
		&ChatParticipant{},
		&RoomUserState{},
		&UserChatHistoryPreference{},
		&Message{},
		&MessageAttachment{},
		&MessageMention{},
		&MessageReaction{},
		&UserBlock{},
		&Notification{},
		&AiFeedback{},
	}
}
