package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// room types
const (
	RoomTypeGroup   = "group"
	RoomTypePrivate = "private"
	RoomTypeAI      = "ai"
)

// group kinds
const (
	GroupKindClinicAll    = "clinic_all"
	GroupKindClinicRole   = "clinic_role"
	GroupKindClinicCustom = "clinic_custom"
)

// ChatRoom is a conversation context. Rooms are created lazily through
// their UniqueKey and never physically deleted.
type ChatRoom struct {
	ID        uint      `gorm:"primaryKey"`
	RoomType  string    `gorm:"column:room_type;type:varchar(16);index;not null;comment:group, private or ai"`
	GroupKind string    `gorm:"column:group_kind;type:varchar(16);comment:set for group rooms only"`
	Role      string    `gorm:"column:role;type:varchar(32);comment:clinic_role rooms only"`
	ClinicID  *uint     `gorm:"column:clinic_id;index"`
	UniqueKey string    `gorm:"column:unique_key;type:varchar(191);uniqueIndex;not null"`
	Name      string    `gorm:"column:name;type:varchar(128)"`
	CreatedBy *uint     `gorm:"column:created_by"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (ChatRoom) TableName() string {
	return "chat_room"
}

// IsGroup reports whether r is a group room.
func (r *ChatRoom) IsGroup() bool { return r.RoomType == RoomTypeGroup }

// Validate enforces the per-variant shape of a room.
func (r *ChatRoom) Validate() error {
	if r.UniqueKey == "" {
		return errors.New("room unique key is required")
	}
	switch r.RoomType {
	case RoomTypePrivate, RoomTypeAI:
		if r.GroupKind != "" || r.Role != "" || r.ClinicID != nil {
			return fmt.Errorf("%s room cannot carry group fields", r.RoomType)
		}
		return nil
	case RoomTypeGroup:
	default:
		return fmt.Errorf("unknown room type %q", r.RoomType)
	}

	if r.ClinicID == nil {
		return errors.New("group room requires a clinic")
	}
	switch r.GroupKind {
	case GroupKindClinicAll:
		if r.Role != "" {
			return errors.New("clinic_all room cannot have a role")
		}
	case GroupKindClinicRole:
		if r.Role == "" {
			return errors.New("clinic_role room requires a role")
		}
	case GroupKindClinicCustom:
		if r.Role != "" {
			return errors.New("clinic_custom room cannot have a role")
		}
	default:
		return fmt.Errorf("unknown group kind %q", r.GroupKind)
	}
	return nil
}

// PrivateRoomKey is order independent: (a,b) and (b,a) map to one key.
func PrivateRoomKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("private:%d:%d", a, b)
}

func AiRoomKey(userID uint) string {
	return fmt.Sprintf("ai:%d", userID)
}

func ClinicAllKey(clinicID uint) string {
	return fmt.Sprintf("clinic_all:%d", clinicID)
}

func ClinicRoleKey(clinicID uint, role string) string {
	return fmt.Sprintf("clinic_role:%d:%s", clinicID, role)
}

// ClinicCustomKey is unique per creation; custom groups never dedupe.
func ClinicCustomKey(clinicID uint) string {
	return fmt.Sprintf("clinic_custom:%d:%s", clinicID, uuid.NewString())
}

// NewPrivateRoom builds the unsaved room for a pair.
func NewPrivateRoom(a, b uint) *ChatRoom {
	return &ChatRoom{RoomType: RoomTypePrivate, UniqueKey: PrivateRoomKey(a, b)}
}

// NewAiRoom builds the unsaved assistant room for a user.
func NewAiRoom(userID uint) *ChatRoom {
	return &ChatRoom{RoomType: RoomTypeAI, UniqueKey: AiRoomKey(userID), Name: "AI Assistant"}
}

// NewClinicGroupRoom builds an unsaved group room of the given kind.
func NewClinicGroupRoom(kind string, clinicID uint, role, name string) *ChatRoom {
	cid := clinicID
	room := &ChatRoom{RoomType: RoomTypeGroup, GroupKind: kind, ClinicID: &cid, Name: name}
	switch kind {
	case GroupKindClinicAll:
		room.UniqueKey = ClinicAllKey(clinicID)
	case GroupKindClinicRole:
		room.Role = role
		room.UniqueKey = ClinicRoleKey(clinicID, role)
	case GroupKindClinicCustom:
		room.UniqueKey = ClinicCustomKey(clinicID)
	}
	return room
}

// ChatParticipant is the (room, user) membership edge.
type ChatParticipant struct {
	ID       uint      `gorm:"primaryKey"`
	RoomID   uint      `gorm:"column:room_id;uniqueIndex:idx_participant_room_user;not null"`
	UserID   uint      `gorm:"column:user_id;uniqueIndex:idx_participant_room_user;index;not null"`
	JoinedAt time.Time `gorm:"column:joined_at"`
}

func (ChatParticipant) TableName() string {
	return "chat_participant"
}

// RoomUserState holds per-user visibility, read cursor and group mute.
// LastReadMessageID never decreases.
type RoomUserState struct {
	ID                uint       `gorm:"primaryKey"`
	RoomID            uint       `gorm:"column:room_id;uniqueIndex:idx_state_room_user;not null"`
	UserID            uint       `gorm:"column:user_id;uniqueIndex:idx_state_room_user;index;not null"`
	IsDeleted         bool       `gorm:"column:is_deleted;not null;comment:hidden by the user"`
	DeletedAt         *time.Time `gorm:"column:deleted_at"`
	LastReadMessageID uint       `gorm:"column:last_read_message_id;not null;default:0"`
	IsBlocked         bool       `gorm:"column:is_blocked;not null;comment:group mute"`
	BlockedAt         *time.Time `gorm:"column:blocked_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (RoomUserState) TableName() string {
	return "room_user_state"
}

// UserChatHistoryPreference hides a user's view of older messages.
type UserChatHistoryPreference struct {
	ID                uint      `gorm:"primaryKey"`
	UserID            uint      `gorm:"column:user_id;uniqueIndex:idx_pref_user_room;not null"`
	RoomID            uint      `gorm:"column:room_id;uniqueIndex:idx_pref_user_room;not null"`
	HideHistoryBefore time.Time `gorm:"column:hide_history_before;not null"`
}

func (UserChatHistoryPreference) TableName() string {
	return "user_chat_history_preference"
}
