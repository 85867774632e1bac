package service

import (
	"context"
	"errors"
	"log/slog"

	"git.skobk.in/skobkin/telegram-watchlist-bot/catalog"
	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"
)

// Watchlist manages a group's film list and watched marks.
type Watchlist struct {
	storage *storage.Storage
	catalog catalog.Provider
}

func NewWatchlist(s *storage.Storage, provider catalog.Provider) *Watchlist {
	return &Watchlist{storage: s, catalog: provider}
}

// Search proxies a free-text query to the catalog provider. The error
// contract is the provider's: catalog.ErrUnavailable is distinct from an
// empty result.
func (w *Watchlist) Search(ctx context.Context, query string) ([]catalog.Result, error) {
	return w.catalog.Search(ctx, query)
}

// AddToGroup materializes the catalog entry locally if needed and puts it on
// the group's list. Returns ErrDuplicateEntry when the group already lists
// the film; the composite unique index closes the concurrent-add race.
func (w *Watchlist) AddToGroup(ctx context.Context, group *storage.Group, externalID, mediaType string, adder *storage.User) (*storage.GroupFilm, error) {
	film, err := w.materializeFilm(ctx, externalID, mediaType)
	if err != nil {
		return nil, err
	}

	entry, err := w.storage.AddFilmToGroup(group.ID, film.ID, adder.ID)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}

	slog.Info("service: Film added to group list", "group_id", group.ID,
		"film_id", film.ID, "title", film.Title, "added_by", adder.ID)

	return entry, nil
}

// materializeFilm resolves the cached row for an external catalog item,
// fetching full detail and creating it on first use.
func (w *Watchlist) materializeFilm(ctx context.Context, externalID, mediaType string) (*storage.Film, error) {
	film, err := w.storage.FindFilmByExternal(externalID, w.catalog.Source())
	if err == nil {
		return film, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	detail, err := w.catalog.FetchByID(ctx, externalID, mediaType)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, ErrFilmUnavailable
	}

	film = &storage.Film{
		ExternalID:    detail.ExternalID,
		Source:        detail.Source,
		Title:         detail.Title,
		TitleOriginal: detail.TitleOriginal,
		Year:          detail.Year,
		Description:   detail.Description,
		PosterURL:     detail.PosterURL,
		MediaType:     detail.MediaType,
	}
	if err := w.storage.CreateFilm(film); err != nil {
		// Another add won the race for the same catalog item; use its row.
		if errors.Is(err, storage.ErrAlreadyExists) {
			return w.storage.FindFilmByExternal(externalID, w.catalog.Source())
		}
		return nil, err
	}

	return film, nil
}

// ListForGroup returns one page of the group's list, newest first, with the
// total count of the full matching set for pagination math.
func (w *Watchlist) ListForGroup(group *storage.Group, search string, watchedOnly bool, limit, offset int) ([]storage.GroupFilm, int64, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return w.storage.ListGroupFilms(group.ID, search, watchedOnly, limit, offset)
}

// Entry returns one watchlist entry scoped to the group.
func (w *Watchlist) Entry(group *storage.Group, groupFilmID uint) (*storage.GroupFilm, error) {
	entry, err := w.storage.GetGroupFilm(groupFilmID, group.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// MarkWatched marks the entry watched. Marking twice is a silent no-op: the
// existing mark is returned and alreadyMarked is true.
func (w *Watchlist) MarkWatched(entry *storage.GroupFilm, marker *storage.User) (mark *storage.Watched, alreadyMarked bool, err error) {
	mark, err = w.storage.FindWatched(entry.ID)
	if err == nil {
		return mark, true, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	mark, err = w.storage.CreateWatched(entry.ID, marker.ID)
	if err != nil {
		// A concurrent mark got there first; the unique index guarantees a
		// single row either way.
		if errors.Is(err, storage.ErrAlreadyExists) {
			mark, err = w.storage.FindWatched(entry.ID)
			return mark, true, err
		}
		return nil, false, err
	}

	slog.Info("service: Film marked watched", "group_film_id", entry.ID, "marked_by", marker.ID)
	return mark, false, nil
}

// IsWatched reports whether the entry carries a watched mark.
func (w *Watchlist) IsWatched(entry *storage.GroupFilm) (bool, error) {
	_, err := w.storage.FindWatched(entry.ID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, err
}
