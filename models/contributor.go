package models

import "time"

// Contributor is a GitHub user that contributed to one configured repository.
type Contributor struct {
	GithubUsername      string `json:"login" db:"github_username"`
	ContributedRepoName string `json:"repo" db:"contributed_repo_name"`
}

// VerificationToken binds a Discord user to a pending GitHub verification.
type VerificationToken struct {
	UserID    string    `db:"user_id"` // Unique
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ContributorSyncStatus summarises one contributor sync run.
type ContributorSyncStatus struct {
	Repos      int      `json:"repos"`
	Pages      int      `json:"pages"`
	Seen       int      `json:"seen"`
	Inserted   int      `json:"inserted"`
	RepoErrors []string `json:"repo_errors,omitempty"`
}
