// Package repository defines the data access interfaces and their gorm
// implementations. Services depend on the Repositories aggregate only.
package repository

import (
	"time"

	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
)

// ==================== directory ====================

// UserRepository reads the identity directory.
type UserRepository interface {
	FindByID(id uint) (*model.User, error)
	FindByIDs(ids []uint) ([]model.User, error)
	FindByEmail(email string) (*model.User, error)
	// Create is only used for the AI identity.
	Create(user *model.User) error
	// FindUsableByRoles returns active, undeleted, unblocked users of the roles.
	FindUsableByRoles(roles []string) ([]model.User, error)
	// Search lists usable users whose email contains search.
	// A nil clinicIDs means no clinic restriction.
	Search(search string, clinicIDs []uint, limit int) ([]model.User, error)
}

// ClinicRepository reads clinic membership facts.
type ClinicRepository interface {
	FindByID(id uint) (*model.Clinic, error)
	AllIDs() ([]uint, error)
	// ActiveMemberIDs returns the active roster, optionally filtered by role.
	ActiveMemberIDs(clinicID uint, role string) ([]uint, error)
	// FilterMembers returns the subset of userIDs linked to the clinic.
	FilterMembers(clinicID uint, userIDs []uint) ([]uint, error)
	ClinicIDsOfUser(userID uint) ([]uint, error)
}

// PermissionRepository reads grants.
type PermissionRepository interface {
	HasUserPermission(userID uint, code string) (bool, error)
	HasRolePermission(role, code string) (bool, error)
}

// ==================== rooms ====================

// RoomRepository owns chat rooms.
type RoomRepository interface {
	FindByID(id uint) (*model.ChatRoom, error)
	FindByUniqueKey(key string) (*model.ChatRoom, error)
	// GetOrCreate inserts room unless its unique key exists, then loads the
	// stored row into room. created is true only for the inserting caller.
	GetOrCreate(room *model.ChatRoom) (created bool, err error)
	FindGroupRooms(clinicIDs []uint, kind, role string) ([]model.ChatRoom, error)
	// GroupRoomIDsOfUser returns group rooms the user participates in,
	// optionally limited to clinics.
	GroupRoomIDsOfUser(userID uint, clinicIDs []uint) ([]uint, error)
	// ListVisible returns rooms the user participates in and has not hidden.
	ListVisible(userID uint, limit int) ([]model.ChatRoom, error)
	// ListOfUser returns every room the user participates in.
	ListOfUser(userID uint, limit int) ([]model.ChatRoom, error)
	ListAll(limit int) ([]model.ChatRoom, error)
}

// RoomMember is a participant with directory details.
type RoomMember struct {
	RoomID    uint
	UserID    uint
	FirstName string
	LastName  string
	Role      string
}

// ParticipantRepository owns participants and per-user room state.
type ParticipantRepository interface {
	Exists(roomID, userID uint) (bool, error)
	FindState(roomID, userID uint) (*model.RoomUserState, error)
	// LockState loads the state row with SELECT ... FOR UPDATE.
	// Call it inside a transaction.
	LockState(roomID, userID uint) (*model.RoomUserState, error)
	// AddMembers inserts missing participant and state rows, idempotently.
	AddMembers(roomID uint, userIDs []uint) error
	// RemoveMembers deletes participant and state rows of userID in rooms.
	RemoveMembers(roomIDs []uint, userID uint) error
	// DeleteParticipants deletes only the participant rows, keeping state.
	DeleteParticipants(roomIDs []uint, userID uint) error
	// HideRooms marks the user's states in rooms as deleted.
	HideRooms(roomIDs []uint, userID uint, at time.Time) error
	// Unhide clears the deleted flag of the user's state.
	Unhide(roomID, userID uint) error
	// AdvanceCursor sets the cursor only if it grows. Returns rows updated.
	AdvanceCursor(roomID, userID, messageID uint) (int64, error)
	SetBlocked(roomID, userID uint, blocked bool, at *time.Time) error
	MemberIDs(roomID uint) ([]uint, error)
	FilterMembers(roomID uint, userIDs []uint) ([]uint, error)
	MembersOfRooms(roomIDs []uint) ([]RoomMember, error)
	StatesOfUser(userID uint, roomIDs []uint) ([]model.RoomUserState, error)
	// VisibleTo returns which userIDs have the room visible (state not deleted).
	VisibleTo(roomID uint, userIDs []uint) ([]uint, error)
}

// PreferenceRepository owns history visibility windows.
type PreferenceRepository interface {
	Find(userID, roomID uint) (*model.UserChatHistoryPreference, error)
	Upsert(userID, roomID uint, hideBefore time.Time) error
}

// ==================== messages ====================

// MessageRepository owns messages, attachments and mentions.
type MessageRepository interface {
	Create(msg *model.Message) error
	FindByID(id uint) (*model.Message, error)
	FindByIDs(ids []uint) ([]model.Message, error)
	// LatestID returns 0 for an empty room.
	LatestID(roomID uint) (uint, error)
	LatestIDs(roomIDs []uint) (map[uint]uint, error)
	// ListPage returns up to limit messages older than beforeID (0 for newest)
	// and not older than since, in ascending id order.
	ListPage(roomID uint, since *time.Time, beforeID uint, limit int) ([]model.Message, error)
	// ExistsAfter reports whether the room has any message with id > afterID.
	ExistsAfter(roomID, afterID uint) (bool, error)

	CreateAttachments(attachments []model.MessageAttachment) error
	AttachmentsOf(messageIDs []uint) ([]model.MessageAttachment, error)

	// CreateMentions inserts mentions, ignoring duplicates.
	CreateMentions(mentions []model.MessageMention) error
	UnseenMentionMessageIDs(userID, roomID, upTo uint) ([]uint, error)
	MarkMentionsSeen(userID uint, messageIDs []uint, at time.Time) (int64, error)
	// CountUnseenMentions counts unseen mentions in rooms the user has not hidden.
	CountUnseenMentions(userID uint) (int64, error)
}

// ReactionRepository owns message reactions.
type ReactionRepository interface {
	Find(messageID, userID uint) (*model.MessageReaction, error)
	Create(reaction *model.MessageReaction) error
	UpdateReaction(id uint, reaction string) error
	Delete(id uint) error
	ListByMessages(messageIDs []uint) ([]model.MessageReaction, error)
}

// ==================== blocks ====================

// BlockRepository owns pairwise user blocks.
type BlockRepository interface {
	// FindBetween returns a block in either direction.
	FindBetween(a, b uint) (*model.UserBlock, error)
	Find(blockerID, blockedID uint) (*model.UserBlock, error)
	// Create inserts the edge unless it exists; created reports which happened.
	Create(block *model.UserBlock) (created bool, err error)
	Delete(blockerID, blockedID uint) (int64, error)
	ListByBlocker(blockerID uint) ([]model.UserBlock, error)
}

// ==================== notifications and feedback ====================

// NotificationRepository writes into the notification collaborator's table.
type NotificationRepository interface {
	CreateBatch(notifications []model.Notification) error
	MarkMentionsSeen(userID uint, messageIDs []uint) (int64, error)
}

// AiFeedbackRepository owns AI feedback rows.
type AiFeedbackRepository interface {
	Create(feedback *model.AiFeedback) error
	ExistsForMessage(messageID uint, source string) (bool, error)
	// UpsertReaction stores the user's latest reaction to an AI message.
	UpsertReaction(feedback *model.AiFeedback) error
	DeleteReaction(messageID, userID uint) error
}

// ==================== aggregate ====================

// Repositories aggregates every repository for dependency injection.
type Repositories struct {
	db           *gorm.DB
	User         UserRepository
	Clinic       ClinicRepository
	Permission   PermissionRepository
	Room         RoomRepository
	Participant  ParticipantRepository
	Preference   PreferenceRepository
	Message      MessageRepository
	Reaction     ReactionRepository
	Block        BlockRepository
	Notification NotificationRepository
	AiFeedback   AiFeedbackRepository
}

// NewRepositories builds every repository on db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		User:         NewUserRepository(db),
		Clinic:       NewClinicRepository(db),
		Permission:   NewPermissionRepository(db),
		Room:         NewRoomRepository(db),
		Participant:  NewParticipantRepository(db),
		Preference:   NewPreferenceRepository(db),
		Message:      NewMessageRepository(db),
		Reaction:     NewReactionRepository(db),
		Block:        NewBlockRepository(db),
		Notification: NewNotificationRepository(db),
		AiFeedback:   NewAiFeedbackRepository(db),
	}
}

// Transaction runs fn with repositories bound to one transaction.
// Any error rolls everything back.
func (r *Repositories) Transaction(fn func(txRepos *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
