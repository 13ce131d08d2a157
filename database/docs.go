package database

import (
	"context"
	"fmt"
	"strings"

	"coolbot/models"
)

// ReplaceDocs swaps the whole documentation index for entries and stores
// the new cache validator. Both happen in one transaction so a failed sync
// leaves the previous index intact.
func (s *Store) ReplaceDocs(ctx context.Context, entries []models.DocEntry, etag string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin docs transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM docs`); err != nil {
		return fmt.Errorf("failed to clear docs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO docs (name, link) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for docs: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Name, e.Link); err != nil {
			return fmt.Errorf("failed to insert doc %q: %w", e.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, metaDocsETag, etag); err != nil {
		return fmt.Errorf("failed to store docs etag: %w", err)
	}
	return tx.Commit()
}

// Docs returns the documentation index ordered by name.
func (s *Store) Docs(ctx context.Context) ([]models.DocEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, link FROM docs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query docs: %w", err)
	}
	defer rows.Close()

	var docs []models.DocEntry
	for rows.Next() {
		var d models.DocEntry
		if err := rows.Scan(&d.ID, &d.Name, &d.Link); err != nil {
			return nil, fmt.Errorf("failed to scan doc: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SearchDocs returns up to limit entries whose name contains query,
// ignoring case. A limit of zero means no limit.
func (s *Store) SearchDocs(ctx context.Context, query string, limit int) ([]models.DocEntry, error) {
	docs, err := s.Docs(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var matches []models.DocEntry
	for _, d := range docs {
		if !strings.Contains(strings.ToLower(d.Name), needle) {
			continue
		}
		matches = append(matches, d)
		if limit > 0 && len(matches) == limit {
			break
		}
	}
	return matches, nil
}
