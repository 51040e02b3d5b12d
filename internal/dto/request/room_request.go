package request

// OpenPrivateRoomRequest resolves the private room with another user.
// Used by:
//   - handler/room_handler.go: OpenPrivateRoom
type OpenPrivateRoomRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// CreateGroupRequest creates a clinic group room.
// Used by:
//   - handler/room_handler.go: CreateGroup
//   - service/room: CreateClinicGroup
type CreateGroupRequest struct {
	ClinicID uint   `json:"clinic_id" binding:"required"`
	Kind     string `json:"kind" binding:"required,oneof=clinic_all clinic_role clinic_custom"`
	Role     string `json:"role" binding:"required_if=Kind clinic_role"`
	Name     string `json:"name" binding:"max=128"`
	UserIDs  []uint `json:"user_ids"`
}

// MarkReadRequest advances the caller's read cursor.
type MarkReadRequest struct {
	LastMessageID uint `json:"last_message_id" binding:"required"`
}

// MuteRequest toggles a group mute on a member.
type MuteRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Action string `json:"action" binding:"required,oneof=block unblock"`
}

// ListMessagesQuery pages older messages.
type ListMessagesQuery struct {
	BeforeID uint `form:"before_id"`
}

// UserSearchQuery filters the user picker.
type UserSearchQuery struct {
	Search string `form:"search" binding:"max=64"`
}
