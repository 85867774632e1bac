package service

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"git.skobk.in/skobkin/telegram-watchlist-bot/catalog"
	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"

	"github.com/stretchr/testify/require"
)

// fakeProvider serves canned catalog results and counts detail fetches.
type fakeProvider struct {
	films   map[string]catalog.Result
	fetches int
}

func newFakeProvider() *fakeProvider {
	year := 1999
	return &fakeProvider{
		films: map[string]catalog.Result{
			"550": {
				ExternalID: "550", Source: "demo", Title: "Fight Club",
				TitleOriginal: "Fight Club", Year: &year, MediaType: "movie",
			},
		},
	}
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]catalog.Result, error) {
	var results []catalog.Result
	for _, film := range f.films {
		results = append(results, film)
	}
	return results, nil
}

func (f *fakeProvider) FetchByID(ctx context.Context, externalID, mediaType string) (*catalog.Result, error) {
	f.fetches++
	film, ok := f.films[externalID]
	if !ok {
		return nil, nil
	}
	return &film, nil
}

func (f *fakeProvider) Source() string { return "demo" }

func setupGroup(t *testing.T, store *storage.Storage) (*Membership, *storage.Group, *storage.User) {
	t.Helper()
	m := NewMembership(store)
	admin, err := m.GetOrCreateUser(111, UserInfo{FirstName: "Alice"})
	require.NoError(t, err)
	group, err := m.CreateGroup("Movie Night", admin)
	require.NoError(t, err)
	return m, group, admin
}

func TestAddToGroupAndList(t *testing.T) {
	store := newTestStorage(t)
	_, group, admin := setupGroup(t, store)
	w := NewWatchlist(store, newFakeProvider())

	entry, err := w.AddToGroup(context.Background(), group, "550", "movie", admin)
	require.NoError(t, err)
	require.Equal(t, "Fight Club", entry.Film.Title)
	require.NotNil(t, entry.Film.Year)
	require.Equal(t, 1999, *entry.Film.Year)

	entries, total, err := w.ListForGroup(group, "", false, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, entries, 1)

	watched, err := w.IsWatched(&entries[0])
	require.NoError(t, err)
	require.False(t, watched)
}

func TestAddToGroupDuplicate(t *testing.T) {
	store := newTestStorage(t)
	_, group, admin := setupGroup(t, store)
	w := NewWatchlist(store, newFakeProvider())

	_, err := w.AddToGroup(context.Background(), group, "550", "movie", admin)
	require.NoError(t, err)

	_, err = w.AddToGroup(context.Background(), group, "550", "movie", admin)
	require.ErrorIs(t, err, ErrDuplicateEntry)

	_, total, err := w.ListForGroup(group, "", false, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total, "the failed add must not create a row")
}

func TestAddToGroupReusesCachedFilm(t *testing.T) {
	store := newTestStorage(t)
	m, group, admin := setupGroup(t, store)
	provider := newFakeProvider()
	w := NewWatchlist(store, provider)

	_, err := w.AddToGroup(context.Background(), group, "550", "movie", admin)
	require.NoError(t, err)
	require.Equal(t, 1, provider.fetches)

	// A second group adding the same catalog item must resolve to the same
	// film row without another detail fetch.
	other, err := m.GetOrCreateUser(222, UserInfo{})
	require.NoError(t, err)
	otherGroup, err := m.CreateGroup("Other Night", other)
	require.NoError(t, err)

	entry, err := w.AddToGroup(context.Background(), otherGroup, "550", "movie", other)
	require.NoError(t, err)
	require.Equal(t, 1, provider.fetches)

	film, err := store.FindFilmByExternal("550", "demo")
	require.NoError(t, err)
	require.Equal(t, film.ID, entry.FilmID)
}

func TestAddToGroupUnknownFilm(t *testing.T) {
	store := newTestStorage(t)
	_, group, admin := setupGroup(t, store)
	w := NewWatchlist(store, newFakeProvider())

	_, err := w.AddToGroup(context.Background(), group, "404", "movie", admin)
	require.ErrorIs(t, err, ErrFilmUnavailable)
}

func TestMarkWatchedIdempotent(t *testing.T) {
	store := newTestStorage(t)
	_, group, admin := setupGroup(t, store)
	w := NewWatchlist(store, newFakeProvider())

	entry, err := w.AddToGroup(context.Background(), group, "550", "movie", admin)
	require.NoError(t, err)

	mark, already, err := w.MarkWatched(entry, admin)
	require.NoError(t, err)
	require.False(t, already)

	watched, err := w.IsWatched(entry)
	require.NoError(t, err)
	require.True(t, watched)

	again, already, err := w.MarkWatched(entry, admin)
	require.NoError(t, err)
	require.True(t, already)
	require.Equal(t, mark.ID, again.ID, "the existing mark is returned, no second row")
}

func TestListPagination(t *testing.T) {
	store := newTestStorage(t)
	_, group, admin := setupGroup(t, store)
	provider := newFakeProvider()
	w := NewWatchlist(store, provider)

	for i := 0; i < 15; i++ {
		id := strconv.Itoa(1000 + i)
		provider.films[id] = catalog.Result{
			ExternalID: id, Source: "demo",
			Title: fmt.Sprintf("Film %02d", i), MediaType: "movie",
		}
		_, err := w.AddToGroup(context.Background(), group, id, "movie", admin)
		require.NoError(t, err)
	}

	first, total, err := w.ListForGroup(group, "", false, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 15, total)
	require.Len(t, first, 10)

	second, total, err := w.ListForGroup(group, "", false, 10, 10)
	require.NoError(t, err)
	require.EqualValues(t, 15, total, "total reflects the full set regardless of paging")
	require.Len(t, second, 5)

	seen := make(map[uint]bool)
	for _, entry := range first {
		seen[entry.ID] = true
	}
	for _, entry := range second {
		require.False(t, seen[entry.ID], "pages must not overlap")
	}
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStorage(t)
	_, group, admin := setupGroup(t, store)
	provider := newFakeProvider()
	w := NewWatchlist(store, provider)

	for i := 0; i < 3; i++ {
		id := strconv.Itoa(2000 + i)
		provider.films[id] = catalog.Result{ExternalID: id, Source: "demo", Title: id, MediaType: "movie"}
		_, err := w.AddToGroup(context.Background(), group, id, "movie", admin)
		require.NoError(t, err)
	}

	entries, _, err := w.ListForGroup(group, "", false, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "2002", entries[0].Film.Title)
	require.Equal(t, "2000", entries[2].Film.Title)
}

func TestListTitleFilter(t *testing.T) {
	store := newTestStorage(t)
	_, group, admin := setupGroup(t, store)
	provider := newFakeProvider()
	w := NewWatchlist(store, provider)

	provider.films["1"] = catalog.Result{ExternalID: "1", Source: "demo", Title: "The Matrix", MediaType: "movie"}
	provider.films["2"] = catalog.Result{ExternalID: "2", Source: "demo", Title: "Inception", MediaType: "movie"}
	for _, id := range []string{"1", "2"} {
		_, err := w.AddToGroup(context.Background(), group, id, "movie", admin)
		require.NoError(t, err)
	}

	entries, total, err := w.ListForGroup(group, "matr", false, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, entries, 1)
	require.Equal(t, "The Matrix", entries[0].Film.Title)
}

func TestListWatchedOnly(t *testing.T) {
	store := newTestStorage(t)
	_, group, admin := setupGroup(t, store)
	provider := newFakeProvider()
	w := NewWatchlist(store, provider)

	provider.films["1"] = catalog.Result{ExternalID: "1", Source: "demo", Title: "Seen", MediaType: "movie"}
	provider.films["2"] = catalog.Result{ExternalID: "2", Source: "demo", Title: "Unseen", MediaType: "movie"}

	seen, err := w.AddToGroup(context.Background(), group, "1", "movie", admin)
	require.NoError(t, err)
	_, err = w.AddToGroup(context.Background(), group, "2", "movie", admin)
	require.NoError(t, err)

	_, _, err = w.MarkWatched(seen, admin)
	require.NoError(t, err)

	entries, total, err := w.ListForGroup(group, "", true, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, entries, 1)
	require.Equal(t, "Seen", entries[0].Film.Title)
	require.NotNil(t, entries[0].Watched)
}

func TestEntryScopedToGroup(t *testing.T) {
	store := newTestStorage(t)
	m, group, admin := setupGroup(t, store)
	w := NewWatchlist(store, newFakeProvider())

	entry, err := w.AddToGroup(context.Background(), group, "550", "movie", admin)
	require.NoError(t, err)

	other, err := m.GetOrCreateUser(222, UserInfo{})
	require.NoError(t, err)
	otherGroup, err := m.CreateGroup("Other Night", other)
	require.NoError(t, err)

	_, err = w.Entry(otherGroup, entry.ID)
	require.ErrorIs(t, err, ErrEntryNotFound, "entries are not visible across groups")

	found, err := w.Entry(group, entry.ID)
	require.NoError(t, err)
	require.Equal(t, entry.ID, found.ID)
}
