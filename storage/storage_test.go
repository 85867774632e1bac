package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	return s
}

func TestUserUniqueByTelegramID(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.CreateUser(&User{TelegramID: 111}))
	err := s.CreateUser(&User{TelegramID: 111})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestFindUserByTelegramIDNotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.FindUserByTelegramID(999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateGroupWithAdminIsAtomic(t *testing.T) {
	s := newTestStorage(t)

	admin := &User{TelegramID: 111}
	require.NoError(t, s.CreateUser(admin))

	group, err := s.CreateGroupWithAdmin("Movie Night", admin.ID)
	require.NoError(t, err)

	members, err := s.GetGroupMembers(group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, RoleAdmin, members[0].Role)
	require.Equal(t, admin.ID, members[0].UserID)

	isAdmin, err := s.IsGroupAdmin(group.ID, admin.ID)
	require.NoError(t, err)
	require.True(t, isAdmin)
}

func TestGroupMemberUniquePerGroup(t *testing.T) {
	s := newTestStorage(t)

	admin := &User{TelegramID: 111}
	member := &User{TelegramID: 222}
	require.NoError(t, s.CreateUser(admin))
	require.NoError(t, s.CreateUser(member))

	group, err := s.CreateGroupWithAdmin("Movie Night", admin.ID)
	require.NoError(t, err)

	_, err = s.AddGroupMember(group.ID, member.ID, RoleMember)
	require.NoError(t, err)

	_, err = s.AddGroupMember(group.ID, member.ID, RoleMember)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestFilmUniqueByExternalIDAndSource(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.CreateFilm(&Film{ExternalID: "550", Source: "tmdb", Title: "Fight Club"}))

	err := s.CreateFilm(&Film{ExternalID: "550", Source: "tmdb", Title: "Fight Club again"})
	require.ErrorIs(t, err, ErrAlreadyExists)

	// Same external id from another source is a different film.
	require.NoError(t, s.CreateFilm(&Film{ExternalID: "550", Source: "other", Title: "Unrelated"}))
}

func TestGroupFilmUniquePerGroup(t *testing.T) {
	s := newTestStorage(t)

	admin := &User{TelegramID: 111}
	require.NoError(t, s.CreateUser(admin))
	group, err := s.CreateGroupWithAdmin("Movie Night", admin.ID)
	require.NoError(t, err)

	film := &Film{ExternalID: "550", Source: "tmdb", Title: "Fight Club"}
	require.NoError(t, s.CreateFilm(film))

	_, err = s.AddFilmToGroup(group.ID, film.ID, admin.ID)
	require.NoError(t, err)

	_, err = s.AddFilmToGroup(group.ID, film.ID, admin.ID)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestWatchedSingleMarkPerEntry(t *testing.T) {
	s := newTestStorage(t)

	admin := &User{TelegramID: 111}
	require.NoError(t, s.CreateUser(admin))
	group, err := s.CreateGroupWithAdmin("Movie Night", admin.ID)
	require.NoError(t, err)

	film := &Film{ExternalID: "550", Source: "tmdb", Title: "Fight Club"}
	require.NoError(t, s.CreateFilm(film))
	entry, err := s.AddFilmToGroup(group.ID, film.ID, admin.ID)
	require.NoError(t, err)

	_, err = s.CreateWatched(entry.ID, admin.ID)
	require.NoError(t, err)

	_, err = s.CreateWatched(entry.ID, admin.ID)
	require.ErrorIs(t, err, ErrAlreadyExists)

	mark, err := s.FindWatched(entry.ID)
	require.NoError(t, err)
	require.Equal(t, admin.ID, mark.MarkedByUserID)
}

func TestReleaseQueryRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveReleaseQuery("token-1", 1, `[{"guid":"a"}]`, time.Minute))

	query, err := s.FindReleaseQuery("token-1")
	require.NoError(t, err)
	require.Equal(t, `[{"guid":"a"}]`, query.Results)
	require.EqualValues(t, 1, query.GroupFilmID)
}

func TestReleaseQueryExpiry(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveReleaseQuery("stale", 1, "[]", -time.Minute))

	_, err := s.FindReleaseQuery("stale")
	require.ErrorIs(t, err, ErrNotFound)
}
