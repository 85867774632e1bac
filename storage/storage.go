package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrOpenDatabase    = errors.New("cannot open database")
	ErrMigrationFailed = errors.New("failed to migrate")
	ErrQuery           = errors.New("failed to query")
	ErrNotFound        = errors.New("record not found")
	ErrAlreadyExists   = errors.New("record already exists")
)

type Storage struct {
	db *gorm.DB
}

func New(dsn string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		// Duplicate-key races are closed by unique indexes, so the driver
		// error must be recognizable.
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		slog.Error("storage: Failed to connect to database", "error", err, "dsn", dsn)
		return nil, fmt.Errorf("%w: %w", ErrOpenDatabase, err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) migrate() error {
	slog.Info("storage: Running database migrations")

	err := s.db.AutoMigrate(
		&User{},
		&Group{},
		&GroupMember{},
		&Film{},
		&GroupFilm{},
		&Watched{},
		&ReleaseQuery{},
	)
	if err != nil {
		slog.Error("storage: Failed to migrate database", "error", err)
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	return nil
}

// translate maps GORM errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrAlreadyExists
	default:
		return fmt.Errorf("%w: %w", ErrQuery, err)
	}
}
