// Package dao opens the database, migrates the chat schema and builds the
// repository aggregate used by the service layer.
package dao

import (
	"fmt"

	"clinic_chat_server/internal/config"
	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// GormDB is the process wide connection.
var GormDB *gorm.DB

// Repos is the process wide repository aggregate.
var Repos *repository.Repositories

// Dialector picks the gorm driver for cfg.Driver.
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DatabaseName)
		}
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DatabaseName)
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.DatabaseName + ".db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open connects and migrates.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, err
	}
	return db, nil
}

// Init opens the configured database and fills GormDB and Repos.
// Steps:
//  1. pick the dialector from config
//  2. connect and auto-migrate
//  3. build the repository aggregate
func Init() {
	conf := config.GetConfig()

	var err error
	GormDB, err = Open(&conf.DatabaseConfig)
	if err != nil {
		zap.L().Fatal("database init failed", zap.String("driver", conf.DatabaseConfig.Driver), zap.Error(err))
	}
	Repos = repository.NewRepositories(GormDB)
}
