package database

import (
	"context"
	"fmt"
)

// AddContributor records that login contributed to repo. Duplicate pairs
// are ignored; the return value reports whether a row was inserted.
func (s *Store) AddContributor(ctx context.Context, login, repo string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO contributors (github_username, contributed_repo_name) VALUES (?, ?)`,
		login, repo)
	if err != nil {
		return false, fmt.Errorf("failed to add contributor %s/%s: %w", login, repo, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsContributor reports whether login contributed to any tracked
// repository. GitHub logins are case-insensitive.
func (s *Store) IsContributor(ctx context.Context, login string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contributors WHERE github_username = ? COLLATE NOCASE`, login).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up contributor %s: %w", login, err)
	}
	return n > 0, nil
}

// ContributorCount returns the number of stored contributor/repo pairs.
func (s *Store) ContributorCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contributors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count contributors: %w", err)
	}
	return n, nil
}
