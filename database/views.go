package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coolbot/models"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// AddView records a message carrying an interactive control. A row for the
// same message is replaced.
func (s *Store) AddView(ctx context.Context, v models.PersistentView) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	query := `
    INSERT OR REPLACE INTO persistent_views (
        message_id, channel_id, thread_id, view_type, post_owner_id, is_solved, created_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?);`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for saving view: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		v.MessageID,
		v.ChannelID,
		v.ThreadID,
		string(v.ViewType),
		nullString(v.PostOwnerID),
		v.IsSolved,
		v.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save view for message %s: %w", v.MessageID, err)
	}
	return nil
}

// RemoveView deletes the control row for a message. Removing a missing row
// is not an error.
func (s *Store) RemoveView(ctx context.Context, messageID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM persistent_views WHERE message_id = ?`, messageID); err != nil {
		return fmt.Errorf("failed to remove view %s: %w", messageID, err)
	}
	return nil
}

// RemoveThreadViews deletes every control row bound to a thread.
func (s *Store) RemoveThreadViews(ctx context.Context, threadID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM persistent_views WHERE thread_id = ?`, threadID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove views for thread %s: %w", threadID, err)
	}
	return res.RowsAffected()
}

// MarkViewSolved flags a control row as resolved.
func (s *Store) MarkViewSolved(ctx context.Context, messageID string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE persistent_views SET is_solved = 1 WHERE message_id = ?`, messageID); err != nil {
		return fmt.Errorf("failed to mark view %s solved: %w", messageID, err)
	}
	return nil
}

// View returns the control row for a message, or ErrNotFound.
func (s *Store) View(ctx context.Context, messageID string) (models.PersistentView, error) {
	row := s.db.QueryRowContext(ctx, `
    SELECT message_id, channel_id, thread_id, view_type, post_owner_id, is_solved, created_at
    FROM persistent_views WHERE message_id = ?`, messageID)
	v, err := scanView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PersistentView{}, ErrNotFound
	}
	return v, err
}

// Views returns every control row in creation order.
func (s *Store) Views(ctx context.Context) ([]models.PersistentView, error) {
	return s.queryViews(ctx, `
    SELECT message_id, channel_id, thread_id, view_type, post_owner_id, is_solved, created_at
    FROM persistent_views ORDER BY created_at, rowid`)
}

// ThreadViews returns the control rows bound to a thread.
func (s *Store) ThreadViews(ctx context.Context, threadID string) ([]models.PersistentView, error) {
	return s.queryViews(ctx, `
    SELECT message_id, channel_id, thread_id, view_type, post_owner_id, is_solved, created_at
    FROM persistent_views WHERE thread_id = ? ORDER BY created_at, rowid`, threadID)
}

func (s *Store) queryViews(ctx context.Context, query string, args ...any) ([]models.PersistentView, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query views: %w", err)
	}
	defer rows.Close()

	var views []models.PersistentView
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanView(row scanner) (models.PersistentView, error) {
	var (
		v         models.PersistentView
		viewType  string
		owner     sql.NullString
		createdAt int64
	)
	if err := row.Scan(&v.MessageID, &v.ChannelID, &v.ThreadID, &viewType, &owner, &v.IsSolved, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, err
		}
		return v, fmt.Errorf("failed to scan view: %w", err)
	}
	// Unknown types are passed through; rehydration decides what to do with them.
	v.ViewType = models.ViewType(viewType)
	v.PostOwnerID = owner.String
	v.CreatedAt = time.Unix(createdAt, 0)
	return v, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
