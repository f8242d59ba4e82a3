package database

import (
	"fmt"

	"cinema/internal/config"
	"cinema/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table the service owns, in dependency order
var Models = []any{
	&model.User{},
	&model.Movie{},
	&model.Session{},
	&model.Ticket{},
	&model.AuditLog{},
	&model.ExceptionLog{},
}

// NewConnection opens the configured store and migrates the schema
func NewConnection(cfg config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN() + "?_foreign_keys=on&_busy_timeout=5000")
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Warn),
		TranslateError:  true,
		CreateBatchSize: 500,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		// a single connection serializes writers, which is how sqlite works anyway
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema for Models
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto-migrate models: %w", err)
	}
	return nil
}
