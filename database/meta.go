package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const metaDocsETag = "docs_etag"

// Meta returns a stored value, or "" when the key is absent.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta stores a value, replacing any previous one.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("failed to write meta %s: %w", key, err)
	}
	return nil
}

// DocsETag returns the cache validator of the last successful docs sync.
func (s *Store) DocsETag(ctx context.Context) (string, error) {
	return s.Meta(ctx, metaDocsETag)
}
