package repository

import (
	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
)

type clinicRepository struct {
	db *gorm.DB
}

// NewClinicRepository creates the ClinicRepository.
func NewClinicRepository(db *gorm.DB) ClinicRepository {
	return &clinicRepository{db: db}
}

func (r *clinicRepository) FindByID(id uint) (*model.Clinic, error) {
	var clinic model.Clinic
	if err := r.db.First(&clinic, id).Error; err != nil {
		return nil, wrapDBErrorf(err, "find clinic id=%d", id)
	}
	return &clinic, nil
}

func (r *clinicRepository) AllIDs() ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.Clinic{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, wrapDBError(err, "list clinic ids")
	}
	return ids, nil
}

// ActiveMemberIDs joins the link table to users and keeps usable accounts.
// An empty role means every role.
func (r *clinicRepository) ActiveMemberIDs(clinicID uint, role string) ([]uint, error) {
	var ids []uint
	query := r.db.Table("clinic_user").
		Joins("JOIN users ON users.id = clinic_user.user_id").
		Where("clinic_user.clinic_id = ?", clinicID)
	query = usable(query)
	if role != "" {
		query = query.Where("users.role = ?", role)
	}
	if err := query.Order("users.id ASC").Pluck("users.id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "list clinic members clinic_id=%d", clinicID)
	}
	return ids, nil
}

func (r *clinicRepository) FilterMembers(clinicID uint, userIDs []uint) ([]uint, error) {
	var ids []uint
	userIDs = uniqueUints(userIDs)
	if len(userIDs) == 0 {
		return ids, nil
	}
	if err := r.db.Model(&model.ClinicUser{}).
		Where("clinic_id = ? AND user_id IN ?", clinicID, userIDs).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "filter clinic members clinic_id=%d", clinicID)
	}
	return ids, nil
}

func (r *clinicRepository) ClinicIDsOfUser(userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.ClinicUser{}).Where("user_id = ?", userID).
		Order("clinic_id ASC").Pluck("clinic_id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "list clinics of user_id=%d", userID)
	}
	return ids, nil
}
