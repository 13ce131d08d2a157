package models

import (
	"fmt"
	"time"
)

// CloseReason records why a thread is scheduled to close. It selects the
// closure notice and whether the timer survives a restart.
type CloseReason string

const (
	CloseSolved         CloseReason = "solved"
	CloseOwnerLeft      CloseReason = "owner_left"
	CloseStarterDeleted CloseReason = "starter_deleted"
	CloseIncomplete     CloseReason = "incomplete"
)

// ParseCloseReason validates a stored reason.
func ParseCloseReason(s string) (CloseReason, error) {
	switch r := CloseReason(s); r {
	case CloseSolved, CloseOwnerLeft, CloseStarterDeleted, CloseIncomplete:
		return r, nil
	default:
		return "", fmt.Errorf("unknown close reason %q", s)
	}
}

// PendingClose is a scheduled auto-close. CloseAt holds the raw delay in
// seconds, not a deadline.
type PendingClose struct {
	ThreadID  string      `db:"thread_id"` // Unique
	CloseAt   int64       `db:"close_at"`
	Reason    CloseReason `db:"reason"`
	CreatedAt time.Time   `db:"created_at"`
}

// Delay returns the stored delay as a duration.
func (p PendingClose) Delay() time.Duration {
	return time.Duration(p.CloseAt) * time.Second
}
