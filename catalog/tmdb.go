package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	tmdbSource       = "tmdb"
	defaultBaseURL   = "https://api.themoviedb.org/3"
	defaultImageBase = "https://image.tmdb.org/t/p/w500"

	searchResultLimit = 5
	maxDescriptionLen = 2000
	requestTimeout    = 10 * time.Second
)

// TMDB implements Provider against The Movie Database API.
type TMDB struct {
	apiKey    string
	language  string
	baseURL   string
	imageBase string
	client    *http.Client
}

func NewTMDB(apiKey, language string) *TMDB {
	return &TMDB{
		apiKey:    apiKey,
		language:  language,
		baseURL:   defaultBaseURL,
		imageBase: defaultImageBase,
		client:    &http.Client{Timeout: requestTimeout},
	}
}

func (t *TMDB) Source() string {
	return tmdbSource
}

// tmdbItem covers both media kinds: movies use title/original_title/
// release_date, shows use name/original_name/first_air_date.
type tmdbItem struct {
	ID            int64  `json:"id"`
	MediaType     string `json:"media_type"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	ReleaseDate   string `json:"release_date"`
	Name          string `json:"name"`
	OriginalName  string `json:"original_name"`
	FirstAirDate  string `json:"first_air_date"`
	Overview      string `json:"overview"`
	PosterPath    string `json:"poster_path"`
}

type tmdbSearchResponse struct {
	Results []tmdbItem `json:"results"`
}

// Search queries the multi-search endpoint and keeps up to five movie/show
// matches. A nil error with an empty slice means the catalog had no matches.
func (t *TMDB) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("language", t.language)
	params.Set("include_adult", "false")

	var response tmdbSearchResponse
	if err := t.get(ctx, "/search/multi", params, &response); err != nil {
		return nil, err
	}

	results := make([]Result, 0, searchResultLimit)
	for _, item := range response.Results {
		if item.MediaType != "movie" && item.MediaType != "tv" {
			continue
		}
		results = append(results, t.mapItem(item, item.MediaType))
		if len(results) == searchResultLimit {
			break
		}
	}

	slog.Debug("catalog: TMDB search finished", "query", query, "results", len(results))
	return results, nil
}

// FetchByID loads full detail for one item. A 404 means the catalog does not
// know the id and yields (nil, nil).
func (t *TMDB) FetchByID(ctx context.Context, externalID, mediaType string) (*Result, error) {
	if mediaType != "movie" && mediaType != "tv" {
		return nil, fmt.Errorf("%w: unsupported media type %q", ErrUnavailable, mediaType)
	}

	params := url.Values{}
	params.Set("language", t.language)

	endpoint := fmt.Sprintf("/%s/%s", mediaType, url.PathEscape(externalID))

	req, err := t.newRequest(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Error("catalog: TMDB detail request failed", "error", err, "external_id", externalID)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("catalog: TMDB detail returned error status", "status", resp.StatusCode, "external_id", externalID)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var item tmdbItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		slog.Error("catalog: Cannot decode TMDB detail response", "error", err, "external_id", externalID)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	result := t.mapItem(item, mediaType)
	return &result, nil
}

func (t *TMDB) newRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (t *TMDB) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	req, err := t.newRequest(ctx, endpoint, params)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Error("catalog: TMDB request failed", "error", err, "endpoint", endpoint)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("catalog: TMDB returned error status", "status", resp.StatusCode, "endpoint", endpoint)
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Error("catalog: Cannot decode TMDB response", "error", err, "endpoint", endpoint)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return nil
}

// mapItem branches on media kind: the two kinds expose different field names
// upstream and must not be assumed to share a schema.
func (t *TMDB) mapItem(item tmdbItem, mediaType string) Result {
	var title, original, date string
	if mediaType == "movie" {
		title = item.Title
		original = item.OriginalTitle
		date = item.ReleaseDate
	} else {
		title = item.Name
		original = item.OriginalName
		date = item.FirstAirDate
	}

	description := item.Overview
	if runes := []rune(description); len(runes) > maxDescriptionLen {
		description = string(runes[:maxDescriptionLen])
	}

	var posterURL string
	if item.PosterPath != "" {
		posterURL = t.imageBase + item.PosterPath
	}

	return Result{
		ExternalID:    strconv.FormatInt(item.ID, 10),
		Source:        tmdbSource,
		Title:         title,
		TitleOriginal: original,
		Year:          parseYear(date),
		Description:   description,
		PosterURL:     posterURL,
		MediaType:     mediaType,
	}
}

// parseYear takes the leading four digits of a yyyy-mm-dd date string.
func parseYear(date string) *int {
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &year
}
