package repository

import (
	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates the UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// usable restricts a query to accounts that may chat.
func usable(db *gorm.DB) *gorm.DB {
	return db.Where("users.is_active = ? AND users.is_deleted = ? AND users.is_blocked = ?", true, false, false)
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, wrapDBErrorf(err, "find user id=%d", id)
	}
	return &user, nil
}

// FindByIDs returns the users found; missing ids are skipped.
func (r *userRepository) FindByIDs(ids []uint) ([]model.User, error) {
	var users []model.User
	ids = uniqueUints(ids)
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, wrapDBError(err, "find users by ids")
	}
	return users, nil
}

func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrapDBErrorf(err, "find user email=%s", email)
	}
	return &user, nil
}

func (r *userRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return wrapDBError(err, "create user")
	}
	return nil
}

func (r *userRepository) FindUsableByRoles(roles []string) ([]model.User, error) {
	var users []model.User
	if len(roles) == 0 {
		return users, nil
	}
	if err := usable(r.db).Where("role IN ?", roles).Order("id ASC").Find(&users).Error; err != nil {
		return nil, wrapDBError(err, "find users by roles")
	}
	return users, nil
}

// Search matches on email, ordered by email.
func (r *userRepository) Search(search string, clinicIDs []uint, limit int) ([]model.User, error) {
	var users []model.User
	query := usable(r.db.Model(&model.User{}))
	if search != "" {
		query = query.Where("users.email LIKE ?", "%"+search+"%")
	}
	if clinicIDs != nil {
		if len(clinicIDs) == 0 {
			return users, nil
		}
		// Distinct via subquery keeps one row per user
		sub := r.db.Model(&model.ClinicUser{}).Select("user_id").Where("clinic_id IN ?", clinicIDs)
		query = query.Where("users.id IN (?)", sub)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("users.email ASC").Find(&users).Error; err != nil {
		return nil, wrapDBError(err, "search users")
	}
	return users, nil
}
