package model

import "time"

// UserBlock is a directional block edge. Either direction blocks the pair.
type UserBlock struct {
	ID        uint      `gorm:"primaryKey"`
	BlockerID uint      `gorm:"column:blocker_id;uniqueIndex:idx_block_pair;not null"`
	BlockedID uint      `gorm:"column:blocked_id;uniqueIndex:idx_block_pair;index;not null"`
	BlockedAt time.Time `gorm:"column:blocked_at;not null"`
}

func (UserBlock) TableName() string {
	return "user_block"
}
