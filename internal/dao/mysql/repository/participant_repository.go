package repository

import (
	"time"

	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository creates the ParticipantRepository.
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Exists(roomID, userID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&model.ChatParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).Count(&count).Error; err != nil {
		return false, wrapDBErrorf(err, "check participant room_id=%d user_id=%d", roomID, userID)
	}
	return count > 0, nil
}

func (r *participantRepository) FindState(roomID, userID uint) (*model.RoomUserState, error) {
	var state model.RoomUserState
	if err := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&state).Error; err != nil {
		return nil, wrapDBErrorf(err, "find state room_id=%d user_id=%d", roomID, userID)
	}
	return &state, nil
}

func (r *participantRepository) LockState(roomID, userID uint) (*model.RoomUserState, error) {
	var state model.RoomUserState
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ? AND user_id = ?", roomID, userID).First(&state).Error; err != nil {
		return nil, wrapDBErrorf(err, "lock state room_id=%d user_id=%d", roomID, userID)
	}
	return &state, nil
}

// AddMembers writes both rows for every user. Existing rows are left as is,
// so a re-added member keeps their cursor and mute.
func (r *participantRepository) AddMembers(roomID uint, userIDs []uint) error {
	userIDs = uniqueUints(userIDs)
	if len(userIDs) == 0 {
		return nil
	}
	now := time.Now()
	participants := make([]model.ChatParticipant, 0, len(userIDs))
	states := make([]model.RoomUserState, 0, len(userIDs))
	for _, uid := range userIDs {
		participants = append(participants, model.ChatParticipant{RoomID: roomID, UserID: uid, JoinedAt: now})
		states = append(states, model.RoomUserState{RoomID: roomID, UserID: uid})
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&participants).Error; err != nil {
		return wrapDBErrorf(err, "add participants room_id=%d", roomID)
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&states).Error; err != nil {
		return wrapDBErrorf(err, "add room states room_id=%d", roomID)
	}
	return nil
}

func (r *participantRepository) RemoveMembers(roomIDs []uint, userID uint) error {
	roomIDs = uniqueUints(roomIDs)
	if len(roomIDs) == 0 {
		return nil
	}
	if err := r.db.Where("room_id IN ? AND user_id = ?", roomIDs, userID).
		Delete(&model.ChatParticipant{}).Error; err != nil {
		return wrapDBErrorf(err, "remove participant user_id=%d", userID)
	}
	if err := r.db.Where("room_id IN ? AND user_id = ?", roomIDs, userID).
		Delete(&model.RoomUserState{}).Error; err != nil {
		return wrapDBErrorf(err, "remove room state user_id=%d", userID)
	}
	return nil
}

func (r *participantRepository) DeleteParticipants(roomIDs []uint, userID uint) error {
	roomIDs = uniqueUints(roomIDs)
	if len(roomIDs) == 0 {
		return nil
	}
	if err := r.db.Where("room_id IN ? AND user_id = ?", roomIDs, userID).
		Delete(&model.ChatParticipant{}).Error; err != nil {
		return wrapDBErrorf(err, "delete participant user_id=%d", userID)
	}
	return nil
}

func (r *participantRepository) HideRooms(roomIDs []uint, userID uint, at time.Time) error {
	roomIDs = uniqueUints(roomIDs)
	if len(roomIDs) == 0 {
		return nil
	}
	if err := r.db.Model(&model.RoomUserState{}).
		Where("room_id IN ? AND user_id = ?", roomIDs, userID).
		Updates(map[string]any{"is_deleted": true, "deleted_at": at}).Error; err != nil {
		return wrapDBErrorf(err, "hide rooms user_id=%d", userID)
	}
	return nil
}

func (r *participantRepository) Unhide(roomID, userID uint) error {
	if err := r.db.Model(&model.RoomUserState{}).
		Where("room_id = ? AND user_id = ? AND is_deleted = ?", roomID, userID, true).
		Updates(map[string]any{"is_deleted": false, "deleted_at": nil}).Error; err != nil {
		return wrapDBErrorf(err, "unhide room_id=%d user_id=%d", roomID, userID)
	}
	return nil
}

// AdvanceCursor is a conditional update: the WHERE clause makes concurrent
// writers merge to the maximum.
func (r *participantRepository) AdvanceCursor(roomID, userID, messageID uint) (int64, error) {
	res := r.db.Model(&model.RoomUserState{}).
		Where("room_id = ? AND user_id = ? AND last_read_message_id < ?", roomID, userID, messageID).
		Updates(map[string]any{"last_read_message_id": messageID, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "advance cursor room_id=%d user_id=%d", roomID, userID)
	}
	return res.RowsAffected, nil
}

func (r *participantRepository) SetBlocked(roomID, userID uint, blocked bool, at *time.Time) error {
	res := r.db.Model(&model.RoomUserState{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Updates(map[string]any{"is_blocked": blocked, "blocked_at": at})
	if res.Error != nil {
		return wrapDBErrorf(res.Error, "set group mute room_id=%d user_id=%d", roomID, userID)
	}
	if res.RowsAffected == 0 {
		return wrapDBErrorf(gorm.ErrRecordNotFound, "room state room_id=%d user_id=%d", roomID, userID)
	}
	return nil
}

func (r *participantRepository) MemberIDs(roomID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.ChatParticipant{}).Where("room_id = ?", roomID).
		Order("user_id ASC").Pluck("user_id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "list members room_id=%d", roomID)
	}
	return ids, nil
}

func (r *participantRepository) FilterMembers(roomID uint, userIDs []uint) ([]uint, error) {
	var ids []uint
	userIDs = uniqueUints(userIDs)
	if len(userIDs) == 0 {
		return ids, nil
	}
	if err := r.db.Model(&model.ChatParticipant{}).
		Where("room_id = ? AND user_id IN ?", roomID, userIDs).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "filter members room_id=%d", roomID)
	}
	return ids, nil
}

// MembersOfRooms loads participants with their names in one query.
func (r *participantRepository) MembersOfRooms(roomIDs []uint) ([]RoomMember, error) {
	var members []RoomMember
	roomIDs = uniqueUints(roomIDs)
	if len(roomIDs) == 0 {
		return members, nil
	}
	if err := r.db.Table("chat_participant").
		Select("chat_participant.room_id, users.id AS user_id, users.first_name, users.last_name, users.role").
		Joins("JOIN users ON users.id = chat_participant.user_id").
		Where("chat_participant.room_id IN ?", roomIDs).
		Order("chat_participant.room_id ASC, users.id ASC").
		Scan(&members).Error; err != nil {
		return nil, wrapDBError(err, "list room members")
	}
	return members, nil
}

// StatesOfUser returns every state of the user when roomIDs is nil.
func (r *participantRepository) StatesOfUser(userID uint, roomIDs []uint) ([]model.RoomUserState, error) {
	var states []model.RoomUserState
	query := r.db.Where("user_id = ?", userID)
	if roomIDs != nil {
		if len(roomIDs) == 0 {
			return states, nil
		}
		query = query.Where("room_id IN ?", roomIDs)
	}
	if err := query.Find(&states).Error; err != nil {
		return nil, wrapDBErrorf(err, "list states user_id=%d", userID)
	}
	return states, nil
}

func (r *participantRepository) VisibleTo(roomID uint, userIDs []uint) ([]uint, error) {
	var ids []uint
	userIDs = uniqueUints(userIDs)
	if len(userIDs) == 0 {
		return ids, nil
	}
	if err := r.db.Table("chat_participant").
		Joins("LEFT JOIN room_user_state ON room_user_state.room_id = chat_participant.room_id AND room_user_state.user_id = chat_participant.user_id").
		Where("chat_participant.room_id = ? AND chat_participant.user_id IN ?", roomID, userIDs).
		Where("room_user_state.id IS NULL OR room_user_state.is_deleted = ?", false).
		Pluck("chat_participant.user_id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "list visible members room_id=%d", roomID)
	}
	return ids, nil
}
