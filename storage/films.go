package storage

import (
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"
)

// FindFilmByExternal looks up a cached catalog entry by its external identity.
func (s *Storage) FindFilmByExternal(externalID, source string) (*Film, error) {
	var film Film
	result := s.db.Where("external_id = ? AND source = ?", externalID, source).First(&film)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &film, nil
}

// CreateFilm inserts a catalog entry. The (external id, source) unique index
// makes a concurrent duplicate insert fail with ErrAlreadyExists; callers
// re-resolve to the winning row.
func (s *Storage) CreateFilm(film *Film) error {
	result := s.db.Create(film)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			slog.Error("storage: Failed to create film", "error", result.Error,
				"external_id", film.ExternalID, "source", film.Source)
		}
		return translate(result.Error)
	}
	return nil
}

// AddFilmToGroup puts a film on a group's watchlist. Returns ErrAlreadyExists
// when the film is already listed for the group.
func (s *Storage) AddFilmToGroup(groupID, filmID, addedByUserID uint) (*GroupFilm, error) {
	entry := &GroupFilm{
		GroupID:       groupID,
		FilmID:        filmID,
		AddedByUserID: addedByUserID,
	}

	result := s.db.Create(entry)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			slog.Error("storage: Failed to add film to group", "error", result.Error,
				"group_id", groupID, "film_id", filmID)
		}
		return nil, translate(result.Error)
	}

	if err := s.db.Preload("Film").First(entry, entry.ID).Error; err != nil {
		return nil, translate(err)
	}
	return entry, nil
}

// GetGroupFilm returns one watchlist entry scoped to a group, with film and
// watched mark preloaded.
func (s *Storage) GetGroupFilm(groupFilmID, groupID uint) (*GroupFilm, error) {
	var entry GroupFilm
	result := s.db.Preload("Film").Preload("Watched").
		Where("id = ? AND group_id = ?", groupFilmID, groupID).
		First(&entry)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &entry, nil
}

// ListGroupFilms returns a page of a group's watchlist, newest first, plus
// the total count of matching rows. search filters by case-insensitive title
// substring; watchedOnly keeps only marked entries.
func (s *Storage) ListGroupFilms(groupID uint, search string, watchedOnly bool, limit, offset int) ([]GroupFilm, int64, error) {
	conditions := func() *gorm.DB {
		query := s.db.Model(&GroupFilm{}).
			Joins("JOIN films ON films.id = group_films.film_id").
			Where("group_films.group_id = ?", groupID)
		if search != "" {
			pattern := "%" + strings.ToLower(search) + "%"
			query = query.Where("LOWER(films.title) LIKE ? OR LOWER(films.title_original) LIKE ?", pattern, pattern)
		}
		if watchedOnly {
			query = query.Where("EXISTS (SELECT 1 FROM watcheds WHERE watcheds.group_film_id = group_films.id AND watcheds.deleted_at IS NULL)")
		}
		return query
	}

	var total int64
	if err := conditions().Count(&total).Error; err != nil {
		slog.Error("storage: Failed to count group films", "error", err, "group_id", groupID)
		return nil, 0, translate(err)
	}

	var entries []GroupFilm
	result := conditions().
		Preload("Film").Preload("Watched").
		Order("group_films.created_at DESC, group_films.id DESC").
		Limit(limit).Offset(offset).
		Find(&entries)
	if result.Error != nil {
		slog.Error("storage: Failed to list group films", "error", result.Error, "group_id", groupID)
		return nil, 0, translate(result.Error)
	}

	return entries, total, nil
}

// FindWatched returns the watched mark for a watchlist entry or ErrNotFound.
func (s *Storage) FindWatched(groupFilmID uint) (*Watched, error) {
	var mark Watched
	result := s.db.Where("group_film_id = ?", groupFilmID).First(&mark)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &mark, nil
}

// CreateWatched inserts a watched mark. The unique index on the entry id
// keeps concurrent double-marks down to one row.
func (s *Storage) CreateWatched(groupFilmID, markedByUserID uint) (*Watched, error) {
	mark := &Watched{
		GroupFilmID:    groupFilmID,
		MarkedByUserID: markedByUserID,
	}

	result := s.db.Create(mark)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			slog.Error("storage: Failed to create watched mark", "error", result.Error,
				"group_film_id", groupFilmID)
		}
		return nil, translate(result.Error)
	}
	return mark, nil
}
