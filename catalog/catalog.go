package catalog

import (
	"context"
	"errors"
)

// ErrUnavailable means the metadata service could not be reached or answered
// with an error. It is distinct from a successful search with zero matches.
var ErrUnavailable = errors.New("catalog service unavailable")

// Result is the uniform shape both media kinds are mapped into.
type Result struct {
	ExternalID    string
	Source        string
	Title         string
	TitleOriginal string
	Year          *int
	Description   string
	PosterURL     string
	MediaType     string
}

// Provider searches an external film metadata catalog. One implementation
// exists today (TMDB); the interface leaves room for other sources without
// pretending to be a plugin system.
type Provider interface {
	// Search returns up to a small fixed number of matches for a free-text
	// query. An empty slice with a nil error means nothing matched.
	Search(ctx context.Context, query string) ([]Result, error)

	// FetchByID returns full detail for one item, or (nil, nil) when the
	// catalog does not know the id.
	FetchByID(ctx context.Context, externalID, mediaType string) (*Result, error)

	// Source tags rows materialized from this provider.
	Source() string
}
