// Package model defines the gorm entities.
// This file holds the directory entities the chat core reads but does not own.
package model

import (
	"strings"
	"time"
)

// User is a staff account from the identity directory.
type User struct {
	ID                   uint      `gorm:"primaryKey"`
	Email                string    `gorm:"column:email;type:varchar(191);uniqueIndex;not null"`
	FirstName            string    `gorm:"column:first_name;type:varchar(64)"`
	LastName             string    `gorm:"column:last_name;type:varchar(64)"`
	Role                 string    `gorm:"column:role;type:varchar(32);index;not null;comment:owner, president, doctor, ai ..."`
	IsActive             bool      `gorm:"column:is_active;not null"`
	IsDeleted            bool      `gorm:"column:is_deleted;not null"`
	IsBlocked            bool      `gorm:"column:is_blocked;not null;comment:admin level account block"`
	IsSuperuser          bool      `gorm:"column:is_superuser;not null"`
	NotifyTaggedMessages bool      `gorm:"column:notify_tagged_messages;not null"`
	CreatedAt            time.Time `gorm:"column:created_at"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName joins first and last name.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Usable reports whether the account may take part in chat at all.
func (u *User) Usable() bool {
	return u.IsActive && !u.IsDeleted && !u.IsBlocked
}

// Clinic is a tenant.
type Clinic struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;type:varchar(128);not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Clinic) TableName() string {
	return "clinic"
}

// ClinicUser links a user to a clinic.
type ClinicUser struct {
	ID       uint `gorm:"primaryKey"`
	ClinicID uint `gorm:"column:clinic_id;uniqueIndex:idx_clinic_user;not null"`
	UserID   uint `gorm:"column:user_id;uniqueIndex:idx_clinic_user;index;not null"`
}

func (ClinicUser) TableName() string {
	return "clinic_user"
}
