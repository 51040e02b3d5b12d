package repository

import (
	"time"

	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates the PreferenceRepository.
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Find(userID, roomID uint) (*model.UserChatHistoryPreference, error) {
	var pref model.UserChatHistoryPreference
	if err := r.db.Where("user_id = ? AND room_id = ?", userID, roomID).First(&pref).Error; err != nil {
		return nil, wrapDBErrorf(err, "find history preference user_id=%d room_id=%d", userID, roomID)
	}
	return &pref, nil
}

func (r *preferenceRepository) Upsert(userID, roomID uint, hideBefore time.Time) error {
	pref := model.UserChatHistoryPreference{UserID: userID, RoomID: roomID, HideHistoryBefore: hideBefore}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"hide_history_before"}),
	}).Create(&pref).Error; err != nil {
		return wrapDBErrorf(err, "save history preference user_id=%d room_id=%d", userID, roomID)
	}
	return nil
}
