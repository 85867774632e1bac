package storage

import (
	"log/slog"
	"time"
)

// SaveReleaseQuery persists one release search result set keyed by token and
// prunes queries that have already expired.
func (s *Storage) SaveReleaseQuery(token string, groupFilmID uint, results string, ttl time.Duration) error {
	query := &ReleaseQuery{
		Token:       token,
		GroupFilmID: groupFilmID,
		Results:     results,
		ExpiresAt:   time.Now().Add(ttl),
	}

	result := s.db.Create(query)
	if result.Error != nil {
		slog.Error("storage: Failed to save release query", "error", result.Error, "token", token)
		return translate(result.Error)
	}

	// Opportunistic cleanup, failures are not fatal.
	if err := s.db.Unscoped().Where("expires_at < ?", time.Now()).Delete(&ReleaseQuery{}).Error; err != nil {
		slog.Warn("storage: Failed to prune expired release queries", "error", err)
	}

	return nil
}

// FindReleaseQuery returns a stored release search by token. Expired queries
// are reported as ErrNotFound.
func (s *Storage) FindReleaseQuery(token string) (*ReleaseQuery, error) {
	var query ReleaseQuery
	result := s.db.Where("token = ? AND expires_at >= ?", token, time.Now()).First(&query)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &query, nil
}
