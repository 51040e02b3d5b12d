package repository

import (
	"errors"

	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
)

type aiFeedbackRepository struct {
	db *gorm.DB
}

// NewAiFeedbackRepository creates the AiFeedbackRepository.
func NewAiFeedbackRepository(db *gorm.DB) AiFeedbackRepository {
	return &aiFeedbackRepository{db: db}
}

func (r *aiFeedbackRepository) Create(feedback *model.AiFeedback) error {
	if err := r.db.Create(feedback).Error; err != nil {
		return wrapDBErrorf(err, "create ai feedback message_id=%d", feedback.MessageID)
	}
	return nil
}

func (r *aiFeedbackRepository) ExistsForMessage(messageID uint, source string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.AiFeedback{}).
		Where("message_id = ? AND source = ?", messageID, source).Count(&count).Error; err != nil {
		return false, wrapDBErrorf(err, "check ai feedback message_id=%d", messageID)
	}
	return count > 0, nil
}

// UpsertReaction keeps one reaction row per (message, user).
func (r *aiFeedbackRepository) UpsertReaction(feedback *model.AiFeedback) error {
	if feedback.UserID == nil {
		return wrapDBError(errors.New("user id required"), "upsert ai reaction")
	}
	var existing model.AiFeedback
	err := r.db.Where("message_id = ? AND user_id = ? AND source = ?",
		feedback.MessageID, *feedback.UserID, model.FeedbackSourceReaction).First(&existing).Error
	switch {
	case err == nil:
		if err := r.db.Model(&existing).Update("reaction", feedback.Reaction).Error; err != nil {
			return wrapDBErrorf(err, "update ai reaction id=%d", existing.ID)
		}
		existing.Reaction = feedback.Reaction
		*feedback = existing
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		feedback.Source = model.FeedbackSourceReaction
		return r.Create(feedback)
	default:
		return wrapDBErrorf(err, "find ai reaction message_id=%d", feedback.MessageID)
	}
}

func (r *aiFeedbackRepository) DeleteReaction(messageID, userID uint) error {
	if err := r.db.Where("message_id = ? AND user_id = ? AND source = ?", messageID, userID, model.FeedbackSourceReaction).
		Delete(&model.AiFeedback{}).Error; err != nil {
		return wrapDBErrorf(err, "delete ai reaction message_id=%d user_id=%d", messageID, userID)
	}
	return nil
}
