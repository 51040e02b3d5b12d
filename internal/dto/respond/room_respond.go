package respond

// MemberRespond is a room member in listings.
type MemberRespond struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// RoomRespond is the minimal room view returned by resolve endpoints.
type RoomRespond struct {
	RoomID    uint   `json:"room_id"`
	Type      string `json:"type"`
	GroupKind string `json:"group_kind,omitempty"`
	Role      string `json:"role,omitempty"`
	ClinicID  *uint  `json:"clinic_id,omitempty"`
	Name      string `json:"name"`
}

// RoomListItem is one row of the room list.
// Used by:
//   - service/room: ListRooms, ListUserRooms
type RoomListItem struct {
	RoomRespond
	Unread       bool            `json:"unread"`
	GroupBlocked bool            `json:"group_blocked"`
	MemberCount  int             `json:"member_count"`
	Members      []MemberRespond `json:"members"`
}

// RoomListRespond wraps the list with the audit flag.
type RoomListRespond struct {
	Rooms    []RoomListItem `json:"rooms"`
	ReadOnly bool           `json:"read_only"`
}

// MarkReadRespond reports the cursor after mark_read.
type MarkReadRespond struct {
	Changed           bool `json:"changed"`
	LastReadMessageID uint `json:"last_read_message_id"`
}

// MentionCountRespond is the unread mention badge.
type MentionCountRespond struct {
	TaggedUnread int64 `json:"tagged_unread"`
}

// UserRespond is one user in the picker.
type UserRespond struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}
