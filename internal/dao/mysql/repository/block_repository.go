package repository

import (
	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type blockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates the BlockRepository.
func NewBlockRepository(db *gorm.DB) BlockRepository {
	return &blockRepository{db: db}
}

// FindBetween prefers the oldest edge when both directions exist.
func (r *blockRepository) FindBetween(a, b uint) (*model.UserBlock, error) {
	var block model.UserBlock
	if err := r.db.Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Order("blocked_at ASC, id ASC").First(&block).Error; err != nil {
		return nil, wrapDBErrorf(err, "find block between %d and %d", a, b)
	}
	return &block, nil
}

func (r *blockRepository) Find(blockerID, blockedID uint) (*model.UserBlock, error) {
	var block model.UserBlock
	if err := r.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&block).Error; err != nil {
		return nil, wrapDBErrorf(err, "find block blocker=%d blocked=%d", blockerID, blockedID)
	}
	return &block, nil
}

func (r *blockRepository) Create(block *model.UserBlock) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blocker_id"}, {Name: "blocked_id"}},
		DoNothing: true,
	}).Create(block)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "create block blocker=%d blocked=%d", block.BlockerID, block.BlockedID)
	}
	return res.RowsAffected > 0, nil
}

func (r *blockRepository) Delete(blockerID, blockedID uint) (int64, error) {
	res := r.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).Delete(&model.UserBlock{})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "delete block blocker=%d blocked=%d", blockerID, blockedID)
	}
	return res.RowsAffected, nil
}

func (r *blockRepository) ListByBlocker(blockerID uint) ([]model.UserBlock, error) {
	var blocks []model.UserBlock
	if err := r.db.Where("blocker_id = ?", blockerID).Order("blocked_at DESC").Find(&blocks).Error; err != nil {
		return nil, wrapDBErrorf(err, "list blocks blocker=%d", blockerID)
	}
	return blocks, nil
}
