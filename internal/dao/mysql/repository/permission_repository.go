package repository

import (
	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
)

type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository creates the PermissionRepository.
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) HasUserPermission(userID uint, code string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.UserPermission{}).
		Where("user_id = ? AND code = ?", userID, code).Count(&count).Error; err != nil {
		return false, wrapDBErrorf(err, "check user permission user_id=%d code=%s", userID, code)
	}
	return count > 0, nil
}

func (r *permissionRepository) HasRolePermission(role, code string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.RolePermission{}).
		Where("role = ? AND code = ?", role, code).Count(&count).Error; err != nil {
		return false, wrapDBErrorf(err, "check role permission role=%s code=%s", role, code)
	}
	return count > 0, nil
}
