package database

import (
	"context"
	"fmt"
	"time"

	"coolbot/models"
)

// UpsertPendingClose records a scheduled closure. The last write for a
// thread wins.
func (s *Store) UpsertPendingClose(ctx context.Context, p models.PendingClose) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Reason == "" {
		p.Reason = models.CloseSolved
	}
	query := `
    INSERT INTO pending_closes (thread_id, close_at, reason, created_at)
    VALUES (?, ?, ?, ?)
    ON CONFLICT(thread_id) DO UPDATE SET
        close_at = excluded.close_at,
        reason = excluded.reason,
        created_at = excluded.created_at;`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for pending close: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, p.ThreadID, p.CloseAt, string(p.Reason), p.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("failed to save pending close for thread %s: %w", p.ThreadID, err)
	}
	return nil
}

// DeletePendingClose removes a thread's scheduled closure, if any.
func (s *Store) DeletePendingClose(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_closes WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to delete pending close for thread %s: %w", threadID, err)
	}
	return nil
}

// PendingCloses returns every scheduled closure.
func (s *Store) PendingCloses(ctx context.Context) ([]models.PendingClose, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT thread_id, close_at, reason, created_at FROM pending_closes ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending closes: %w", err)
	}
	defer rows.Close()

	var closes []models.PendingClose
	for rows.Next() {
		var (
			p         models.PendingClose
			reason    string
			createdAt int64
		)
		if err := rows.Scan(&p.ThreadID, &p.CloseAt, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending close: %w", err)
		}
		p.Reason = models.CloseReason(reason)
		p.CreatedAt = time.Unix(createdAt, 0)
		closes = append(closes, p)
	}
	return closes, rows.Err()
}
