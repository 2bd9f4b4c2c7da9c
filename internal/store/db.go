// Package store provides persistence for learned mappings, donor templates,
// budget categories and NGO field alignments on top of gorm and SQLite.
package store

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/models"
)

// Store is the gorm-backed repository used by the service.
type Store struct {
	db     *gorm.DB
	logger logging.Logger
}

// Open opens (creating if needed) the SQLite database at path and migrates
// the schema. Use ":memory:" for a throwaway database.
func Open(path string, logger logging.Logger) (*Store, error) {
	logger = logging.OrDiscard(logger)

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger: NewGormLogger(logger, DefaultSlowQueryThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" databases
	// from splitting across connections.
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Debug("Database ready",
		logging.Field{Key: logging.FieldComponent, Value: "store"},
		logging.Field{Key: logging.FieldFile, Value: path})
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(
		&models.SemanticFieldMapping{},
		&models.DonorTemplate{},
		&models.DonorField{},
		&models.BudgetCategory{},
		&models.NgoMapping{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DB exposes the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dsn(path string) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if path == ":memory:" {
		return "file::memory:?" + params
	}
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}
