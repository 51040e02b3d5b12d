// Package testutil opens throwaway databases and seeds fixtures for tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"clinic_chat_server/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// DB opens a fresh in-memory sqlite database with the full schema.
// One connection only: everything in a test shares the same memory db.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:chat_test_%d?mode=memory&cache=private", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

// ConcurrentDB opens a file-backed sqlite database in WAL mode with
// several connections, so goroutines in a test really race on writes.
// Transactions begin IMMEDIATE and wait on the busy timeout instead of
// failing with SQLITE_BUSY.
func ConcurrentDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := "file:" + filepath.Join(tb.TempDir(), "chat.db") + "?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open concurrent test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("concurrent test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(8)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		tb.Fatalf("migrate concurrent test db: %v", err)
	}
	return db
}

// UserOption tweaks a seeded user.
type UserOption func(*model.User)

func WithSuperuser() UserOption { return func(u *model.User) { u.IsSuperuser = true } }

func Inactive() UserOption { return func(u *model.User) { u.IsActive = false } }

func WithName(first, last string) UserOption {
	return func(u *model.User) { u.FirstName, u.LastName = first, last }
}

func NotifyTagged() UserOption { return func(u *model.User) { u.NotifyTaggedMessages = true } }

// SeedUser creates an active user of role.
func SeedUser(tb testing.TB, db *gorm.DB, email, role string, opts ...UserOption) *model.User {
	tb.Helper()
	u := &model.User{Email: email, Role: role, IsActive: true, FirstName: role, LastName: email}
	for _, opt := range opts {
		opt(u)
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedClinic creates a clinic and links members to it.
func SeedClinic(tb testing.TB, db *gorm.DB, name string, members ...*model.User) *model.Clinic {
	tb.Helper()
	c := &model.Clinic{Name: name}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed clinic: %v", err)
	}
	for _, m := range members {
		LinkClinic(tb, db, c.ID, m.ID)
	}
	return c
}

// LinkClinic adds a clinic_user row.
func LinkClinic(tb testing.TB, db *gorm.DB, clinicID, userID uint) {
	tb.Helper()
	if err := db.Create(&model.ClinicUser{ClinicID: clinicID, UserID: userID}).Error; err != nil {
		tb.Fatalf("link clinic: %v", err)
	}
}

// GrantRole grants codes to a role.
func GrantRole(tb testing.TB, db *gorm.DB, role string, codes ...string) {
	tb.Helper()
	for _, code := range codes {
		if err := db.Create(&model.RolePermission{Role: role, Code: code}).Error; err != nil {
			tb.Fatalf("grant role %s %s: %v", role, code, err)
		}
	}
}

// GrantUser grants codes to one user.
func GrantUser(tb testing.TB, db *gorm.DB, userID uint, codes ...string) {
	tb.Helper()
	for _, code := range codes {
		if err := db.Create(&model.UserPermission{UserID: userID, Code: code}).Error; err != nil {
			tb.Fatalf("grant user %d %s: %v", userID, code, err)
		}
	}
}

// SeedRoom inserts room and its participants with fresh state rows.
func SeedRoom(tb testing.TB, db *gorm.DB, room *model.ChatRoom, members ...uint) *model.ChatRoom {
	tb.Helper()
	if err := db.Create(room).Error; err != nil {
		tb.Fatalf("seed room: %v", err)
	}
	now := time.Now()
	for _, uid := range members {
		if err := db.Create(&model.ChatParticipant{RoomID: room.ID, UserID: uid, JoinedAt: now}).Error; err != nil {
			tb.Fatalf("seed participant: %v", err)
		}
		if err := db.Create(&model.RoomUserState{RoomID: room.ID, UserID: uid}).Error; err != nil {
			tb.Fatalf("seed state: %v", err)
		}
	}
	return room
}

// SeedMessage appends a message from sender.
func SeedMessage(tb testing.TB, db *gorm.DB, roomID, senderID uint, content string) *model.Message {
	tb.Helper()
	sid := senderID
	m := &model.Message{RoomID: roomID, SenderID: &sid, Content: content}
	if err := db.Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}
