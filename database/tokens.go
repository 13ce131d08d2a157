package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coolbot/models"
)

// SetVerificationToken stores a user's token, overwriting any earlier one.
func (s *Store) SetVerificationToken(ctx context.Context, t models.VerificationToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO verification_tokens (user_id, token, expires_at) VALUES (?, ?, ?)`,
		t.UserID, t.Token, t.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store token for user %s: %w", t.UserID, err)
	}
	return nil
}

// VerificationToken returns the user's token, or ErrNotFound. Expired tokens
// that have not been purged yet are returned as-is.
func (s *Store) VerificationToken(ctx context.Context, userID string) (models.VerificationToken, error) {
	var (
		t       models.VerificationToken
		expires int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, token, expires_at FROM verification_tokens WHERE user_id = ?`, userID).
		Scan(&t.UserID, &t.Token, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, fmt.Errorf("failed to read token for user %s: %w", userID, err)
	}
	t.ExpiresAt = time.Unix(expires, 0)
	return t, nil
}

// DeleteVerificationToken removes a user's token.
func (s *Store) DeleteVerificationToken(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete token for user %s: %w", userID, err)
	}
	return nil
}

// PurgeExpiredTokens deletes every token that expired at or before now.
func (s *Store) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	stmt, err := s.db.PrepareContext(ctx, `DELETE FROM verification_tokens WHERE expires_at <= ?`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare token purge: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge tokens: %w", err)
	}
	return res.RowsAffected()
}
