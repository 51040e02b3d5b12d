package repository

import (
	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
)

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates the NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateBatch(notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := r.db.Create(&notifications).Error; err != nil {
		return wrapDBError(err, "create notifications")
	}
	return nil
}

// MarkMentionsSeen flags the mention notifications of the given messages.
func (r *notificationRepository) MarkMentionsSeen(userID uint, messageIDs []uint) (int64, error) {
	messageIDs = uniqueUints(messageIDs)
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND notif_type = ? AND message_id IN ? AND is_seen = ?", userID, model.NotifMention, messageIDs, false).
		Update("is_seen", true)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "mark mention notifications seen user_id=%d", userID)
	}
	return res.RowsAffected, nil
}
