package discovery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func prowlarrServer(t *testing.T, items []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/search", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewEncoder(w).Encode(items))
	}))
}

func TestSearchReleasesFiltersSortsAndLimits(t *testing.T) {
	server := prowlarrServer(t, []map[string]any{
		{"guid": "a", "indexerId": 1, "indexer": "ix", "title": "Movie 1080p", "size": 1000, "seeders": 5, "magnetUrl": "magnet:?a"},
		{"guid": "b", "indexerId": 1, "indexer": "ix", "title": "Movie 2160p", "size": 2000, "seeders": 50, "magnetUrl": "magnet:?b"},
		// No usable link, discarded.
		{"guid": "c", "indexerId": 1, "indexer": "ix", "title": "Movie 1080p proper", "size": 1500, "seeders": 100},
		// Below the minimum tier, discarded.
		{"guid": "d", "indexerId": 1, "indexer": "ix", "title": "Movie 720p", "size": 700, "seeders": 999, "magnetUrl": "magnet:?d"},
		// Unknown tier is retained.
		{"guid": "e", "indexerId": 2, "indexer": "ix2", "title": "Movie BluRay remux", "size": 9000, "seeders": 20, "downloadUrl": "http://x/e.torrent"},
	})
	defer server.Close()

	client := NewProwlarr(server.URL, "test-key")
	releases, err := client.SearchReleases(context.Background(), "Movie", nil, QualityFullHD, 10)
	require.NoError(t, err)
	require.Len(t, releases, 3)

	// Non-increasing seeder counts.
	for i := 1; i < len(releases); i++ {
		require.GreaterOrEqual(t, releases[i-1].Seeders, releases[i].Seeders)
	}

	require.Equal(t, "b", releases[0].GUID)
	require.Equal(t, QualityUltraHD, releases[0].Quality)
	require.Equal(t, "e", releases[1].GUID)
	require.Equal(t, QualityUnknown, releases[1].Quality)
	require.Equal(t, "a", releases[2].GUID)
}

func TestSearchReleasesLimit(t *testing.T) {
	var items []map[string]any
	for i := 0; i < 10; i++ {
		items = append(items, map[string]any{
			"guid": "g", "indexerId": 1, "indexer": "ix",
			"title": "Movie 1080p", "size": 1, "seeders": i, "magnetUrl": "magnet:?x",
		})
	}
	server := prowlarrServer(t, items)
	defer server.Close()

	client := NewProwlarr(server.URL, "test-key")
	releases, err := client.SearchReleases(context.Background(), "Movie", nil, QualityFullHD, 3)
	require.NoError(t, err)
	require.Len(t, releases, 3)
}

func TestSearchReleasesQueryIncludesYear(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := NewProwlarr(server.URL, "test-key")
	year := 1999
	releases, err := client.SearchReleases(context.Background(), "Fight Club", &year, QualityFullHD, 5)
	require.NoError(t, err)
	require.Empty(t, releases)
	require.Equal(t, "Fight Club 1999", gotQuery)
}

func TestSearchReleasesAggregatorDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewProwlarr(server.URL, "test-key")
	_, err := client.SearchReleases(context.Background(), "Movie", nil, QualityFullHD, 5)
	require.ErrorIs(t, err, ErrAggregatorUnavailable)
}

func TestPush(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/search", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewProwlarr(server.URL, "test-key")
	require.True(t, client.Push(context.Background(), "release-guid", 7))
	require.Equal(t, "release-guid", gotBody["guid"])
	require.Equal(t, float64(7), gotBody["indexerId"])
}

func TestPushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewProwlarr(server.URL, "test-key")
	require.False(t, client.Push(context.Background(), "guid", 1))

	server.Close()
	require.False(t, client.Push(context.Background(), "guid", 1))
}
