package storage

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"
)

// FindUserByTelegramID returns the user with the given external id or
// ErrNotFound.
func (s *Storage) FindUserByTelegramID(telegramID int64) (*User, error) {
	var user User
	result := s.db.Where("telegram_id = ?", telegramID).First(&user)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			slog.Error("storage: Failed to find user", "error", result.Error, "telegram_id", telegramID)
		}
		return nil, translate(result.Error)
	}
	return &user, nil
}

// CreateUser inserts a new user row.
func (s *Storage) CreateUser(user *User) error {
	result := s.db.Create(user)
	if result.Error != nil {
		slog.Error("storage: Failed to create user", "error", result.Error, "telegram_id", user.TelegramID)
		return translate(result.Error)
	}
	return nil
}

// UpdateUser persists changed user fields in place.
func (s *Storage) UpdateUser(user *User) error {
	result := s.db.Save(user)
	if result.Error != nil {
		slog.Error("storage: Failed to update user", "error", result.Error, "user_id", user.ID)
		return translate(result.Error)
	}
	return nil
}

// FindUserByID returns the user row by internal id or ErrNotFound.
func (s *Storage) FindUserByID(id uint) (*User, error) {
	var user User
	result := s.db.First(&user, id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &user, nil
}
