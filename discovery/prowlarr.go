package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// ErrAggregatorUnavailable means the indexer aggregator could not be reached
// or answered with an error, as opposed to a search with zero results.
var ErrAggregatorUnavailable = errors.New("release aggregator unavailable")

const (
	// Aggregator categories for movies and TV.
	categoryMovies = "2000"
	categoryTV     = "5000"

	searchTimeout = 30 * time.Second
)

// Release is one downloadable item found through the aggregator.
type Release struct {
	GUID        string  `json:"guid"`
	IndexerID   int     `json:"indexer_id"`
	Indexer     string  `json:"indexer"`
	Title       string  `json:"title"`
	Size        int64   `json:"size"`
	Seeders     int     `json:"seeders"`
	DownloadURL string  `json:"download_url"`
	InfoURL     string  `json:"info_url,omitempty"`
	Quality     Quality `json:"quality"`
}

// SizeGB renders the release size for display.
func (r Release) SizeGB() float64 {
	return float64(r.Size) / (1024 * 1024 * 1024)
}

// Prowlarr queries a Prowlarr instance for releases and can push a chosen
// one to the configured download backend.
type Prowlarr struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewProwlarr(baseURL, apiKey string) *Prowlarr {
	return &Prowlarr{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: searchTimeout},
	}
}

type prowlarrItem struct {
	GUID        string `json:"guid"`
	IndexerID   int    `json:"indexerId"`
	Indexer     string `json:"indexer"`
	Title       string `json:"title"`
	Size        int64  `json:"size"`
	Seeders     int    `json:"seeders"`
	MagnetURL   string `json:"magnetUrl"`
	DownloadURL string `json:"downloadUrl"`
	InfoURL     string `json:"infoUrl"`
}

// SearchReleases queries the aggregator for "title" or "title year", keeps
// items with a usable download link at or above minQuality (unknown tier is
// retained), sorts by seeders descending and truncates to limit.
func (p *Prowlarr) SearchReleases(ctx context.Context, title string, year *int, minQuality Quality, limit int) ([]Release, error) {
	query := title
	if year != nil {
		query = fmt.Sprintf("%s %d", title, *year)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "search")
	params.Add("categories", categoryMovies)
	params.Add("categories", categoryTV)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/v1/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAggregatorUnavailable, err)
	}
	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Error("discovery: Prowlarr search request failed", "error", err, "query", query)
		return nil, fmt.Errorf("%w: %w", ErrAggregatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("discovery: Prowlarr returned error status", "status", resp.StatusCode, "query", query)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrAggregatorUnavailable, resp.StatusCode)
	}

	var items []prowlarrItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		slog.Error("discovery: Cannot decode Prowlarr response", "error", err, "query", query)
		return nil, fmt.Errorf("%w: %w", ErrAggregatorUnavailable, err)
	}

	releases := make([]Release, 0, len(items))
	for _, item := range items {
		link := item.MagnetURL
		if link == "" {
			link = item.DownloadURL
		}
		if link == "" {
			continue
		}

		quality := DetectQuality(item.Title)
		if quality != QualityUnknown && quality < minQuality {
			continue
		}

		releases = append(releases, Release{
			GUID:        item.GUID,
			IndexerID:   item.IndexerID,
			Indexer:     item.Indexer,
			Title:       item.Title,
			Size:        item.Size,
			Seeders:     item.Seeders,
			DownloadURL: link,
			InfoURL:     item.InfoURL,
			Quality:     quality,
		})
	}

	sort.SliceStable(releases, func(i, j int) bool {
		return releases[i].Seeders > releases[j].Seeders
	})

	if limit > 0 && len(releases) > limit {
		releases = releases[:limit]
	}

	slog.Info("discovery: Prowlarr search finished", "query", query,
		"raw_results", len(items), "returned", len(releases))

	return releases, nil
}

// Push forwards a release to the download backend configured in Prowlarr.
// Best effort: true on success, false on any failure.
func (p *Prowlarr) Push(ctx context.Context, guid string, indexerID int) bool {
	body, err := json.Marshal(map[string]any{
		"guid":      guid,
		"indexerId": indexerID,
	})
	if err != nil {
		slog.Error("discovery: Cannot encode push request", "error", err, "guid", guid)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("X-Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Error("discovery: Prowlarr push request failed", "error", err,
			"guid", guid, "indexer_id", indexerID)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("discovery: Prowlarr push returned error status", "status", resp.StatusCode,
			"guid", guid, "indexer_id", strconv.Itoa(indexerID))
		return false
	}

	slog.Info("discovery: Release pushed to download backend", "guid", guid, "indexer_id", indexerID)
	return true
}
