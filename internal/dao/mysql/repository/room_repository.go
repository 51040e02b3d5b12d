package repository

import (
	"clinic_chat_server/internal/model"
	"clinic_chat_server/pkg/errorx"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates the RoomRepository.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) FindByID(id uint) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := r.db.First(&room, id).Error; err != nil {
		return nil, wrapDBErrorf(err, "find room id=%d", id)
	}
	return &room, nil
}

// FindByUniqueKey loads the room owning a deterministic key.
func (r *roomRepository) FindByUniqueKey(key string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := r.db.Where("unique_key = ?", key).First(&room).Error; err != nil {
		return nil, wrapDBErrorf(err, "find room key=%s", key)
	}
	return &room, nil
}

// GetOrCreate relies on the unique key index: concurrent callers race on the
// insert and exactly one of them affects a row.
func (r *roomRepository) GetOrCreate(room *model.ChatRoom) (bool, error) {
	if err := room.Validate(); err != nil {
		return false, errorx.Wrap(err, errorx.CodeInvalidParam, "invalid room")
	}
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "unique_key"}},
		DoNothing: true,
	}).Create(room)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "create room key=%s", room.UniqueKey)
	}
	created := res.RowsAffected > 0

	stored, err := r.FindByUniqueKey(room.UniqueKey)
	if err != nil {
		return false, err
	}
	*room = *stored
	return created, nil
}

// FindGroupRooms lists group rooms of a kind in the clinics. An empty role
// matches every role.
func (r *roomRepository) FindGroupRooms(clinicIDs []uint, kind, role string) ([]model.ChatRoom, error) {
	var rooms []model.ChatRoom
	clinicIDs = uniqueUints(clinicIDs)
	if len(clinicIDs) == 0 {
		return rooms, nil
	}
	query := r.db.Where("room_type = ? AND group_kind = ? AND clinic_id IN ?", model.RoomTypeGroup, kind, clinicIDs)
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, wrapDBErrorf(err, "find group rooms kind=%s", kind)
	}
	return rooms, nil
}

func (r *roomRepository) GroupRoomIDsOfUser(userID uint, clinicIDs []uint) ([]uint, error) {
	var ids []uint
	query := r.db.Table("chat_room").
		Joins("JOIN chat_participant ON chat_participant.room_id = chat_room.id").
		Where("chat_participant.user_id = ? AND chat_room.room_type = ?", userID, model.RoomTypeGroup)
	if clinicIDs != nil {
		if len(clinicIDs) == 0 {
			return ids, nil
		}
		query = query.Where("chat_room.clinic_id IN ?", clinicIDs)
	}
	if err := query.Pluck("chat_room.id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "list group rooms of user_id=%d", userID)
	}
	return ids, nil
}

// ListVisible joins participants with the user's state. A missing state row
// counts as visible.
func (r *roomRepository) ListVisible(userID uint, limit int) ([]model.ChatRoom, error) {
	var rooms []model.ChatRoom
	query := r.db.Model(&model.ChatRoom{}).
		Select("chat_room.*").
		Joins("JOIN chat_participant ON chat_participant.room_id = chat_room.id AND chat_participant.user_id = ?", userID).
		Joins("LEFT JOIN room_user_state ON room_user_state.room_id = chat_room.id AND room_user_state.user_id = ?", userID).
		Where("room_user_state.id IS NULL OR room_user_state.is_deleted = ?", false).
		Order("chat_room.id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rooms).Error; err != nil {
		return nil, wrapDBErrorf(err, "list visible rooms user_id=%d", userID)
	}
	return rooms, nil
}

func (r *roomRepository) ListOfUser(userID uint, limit int) ([]model.ChatRoom, error) {
	var rooms []model.ChatRoom
	query := r.db.Model(&model.ChatRoom{}).
		Select("chat_room.*").
		Joins("JOIN chat_participant ON chat_participant.room_id = chat_room.id AND chat_participant.user_id = ?", userID).
		Order("chat_room.id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rooms).Error; err != nil {
		return nil, wrapDBErrorf(err, "list rooms of user_id=%d", userID)
	}
	return rooms, nil
}

func (r *roomRepository) ListAll(limit int) ([]model.ChatRoom, error) {
	var rooms []model.ChatRoom
	query := r.db.Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rooms).Error; err != nil {
		return nil, wrapDBError(err, "list all rooms")
	}
	return rooms, nil
}
