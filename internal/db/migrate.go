package db

import (
	"fmt" // Error wrapping

	"campus_identity/internal/config" // Custom import path (Config)
	"campus_identity/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Structured logging

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
	"gorm.io/gorm/logger"  // GORM query logger
)

// Models lists every table owned by the service, parents first
func Models() []any {
	return []any{&domain.User{}, &domain.StudentProfile{}, &domain.TeacherProfile{}}
}

// Open connects to MySQL with unique violations translated to gorm.ErrDuplicatedKey
func Open(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn // Slow queries and errors only
	if cfg.IsProd {
		logLevel = logger.Error
	}
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,                             // Map driver errors to gorm errors
		Logger:         logger.Default.LogMode(logLevel), // Query logging
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
