package repository

import (
	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
)

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates the ReactionRepository.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Find(messageID, userID uint) (*model.MessageReaction, error) {
	var reaction model.MessageReaction
	if err := r.db.Where("message_id = ? AND user_id = ?", messageID, userID).First(&reaction).Error; err != nil {
		return nil, wrapDBErrorf(err, "find reaction message_id=%d user_id=%d", messageID, userID)
	}
	return &reaction, nil
}

func (r *reactionRepository) Create(reaction *model.MessageReaction) error {
	if err := r.db.Create(reaction).Error; err != nil {
		return wrapDBErrorf(err, "create reaction message_id=%d", reaction.MessageID)
	}
	return nil
}

func (r *reactionRepository) UpdateReaction(id uint, reaction string) error {
	if err := r.db.Model(&model.MessageReaction{}).Where("id = ?", id).
		Update("reaction", reaction).Error; err != nil {
		return wrapDBErrorf(err, "update reaction id=%d", id)
	}
	return nil
}

func (r *reactionRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.MessageReaction{}, id).Error; err != nil {
		return wrapDBErrorf(err, "delete reaction id=%d", id)
	}
	return nil
}

func (r *reactionRepository) ListByMessages(messageIDs []uint) ([]model.MessageReaction, error) {
	var reactions []model.MessageReaction
	messageIDs = uniqueUints(messageIDs)
	if len(messageIDs) == 0 {
		return reactions, nil
	}
	if err := r.db.Where("message_id IN ?", messageIDs).Find(&reactions).Error; err != nil {
		return nil, wrapDBError(err, "list reactions")
	}
	return reactions, nil
}
