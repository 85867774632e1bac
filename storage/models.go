package storage

import (
	"time"

	"gorm.io/gorm"
)

// Member roles within a group. A group has exactly one admin (its creator);
// everyone added later is a plain member.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Media kinds as reported by the catalog service.
const (
	MediaMovie = "movie"
	MediaShow  = "tv"
)

// User is anyone who has interacted with the bot at least once
type User struct {
	gorm.Model
	TelegramID int64 `gorm:"uniqueIndex:idx_telegram_user"`
	Username   string
	FirstName  string
	LastName   string
	Phone      string
}

// DisplayName returns the best available human-readable name for the user.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Unknown"
}

// Group is a shared watchlist namespace created by a single admin
type Group struct {
	gorm.Model
	Name        string
	AdminUserID uint
	Members     []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	Films       []GroupFilm   `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

// GroupMember ties a user to a group with a role
type GroupMember struct {
	gorm.Model
	GroupID uint `gorm:"uniqueIndex:idx_group_user"`
	UserID  uint `gorm:"uniqueIndex:idx_group_user"`
	Role    string
	User    User `gorm:"foreignKey:UserID;references:ID"`
}

// Film is a locally cached catalog entry. It is shared between groups and
// deduplicated by (ExternalID, Source).
type Film struct {
	gorm.Model
	ExternalID    string `gorm:"uniqueIndex:idx_external_source"`
	Source        string `gorm:"uniqueIndex:idx_external_source"`
	Title         string
	TitleOriginal string
	Year          *int
	Description   string
	PosterURL     string
	MediaType     string
}

// GroupFilm puts a film on a group's watchlist. A film appears at most once
// per group, enforced by the composite index.
type GroupFilm struct {
	gorm.Model
	GroupID       uint `gorm:"uniqueIndex:idx_group_film"`
	FilmID        uint `gorm:"uniqueIndex:idx_group_film"`
	AddedByUserID uint
	Film          Film     `gorm:"foreignKey:FilmID;references:ID"`
	Watched       *Watched `gorm:"foreignKey:GroupFilmID;constraint:OnDelete:CASCADE"`
}

// Watched marks a watchlist entry as viewed. One mark per entry.
type Watched struct {
	gorm.Model
	GroupFilmID    uint `gorm:"uniqueIndex:idx_watched_group_film"`
	MarkedByUserID uint
}

// ReleaseQuery stores the result set of one release search so a later button
// press can refer back to it by token instead of message-id proximity.
type ReleaseQuery struct {
	gorm.Model
	Token       string `gorm:"uniqueIndex:idx_release_token"`
	GroupFilmID uint
	Results     string // JSON-encoded release list
	ExpiresAt   time.Time
}
