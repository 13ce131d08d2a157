package models

import (
	"fmt"
	"time"
)

// ViewType identifies the kind of interactive control attached to a message.
type ViewType string

const (
	ViewSolved       ViewType = "solved"
	ViewNotSolved    ViewType = "not_solved"
	ViewConfirmClose ViewType = "confirm_close"
	ViewSubmitInfo   ViewType = "submit_info"
	ViewIncomplete   ViewType = "incomplete"
)

// ParseViewType validates a stored view_type value.
func ParseViewType(s string) (ViewType, error) {
	switch vt := ViewType(s); vt {
	case ViewSolved, ViewNotSolved, ViewConfirmClose, ViewSubmitInfo, ViewIncomplete:
		return vt, nil
	default:
		return "", fmt.Errorf("unknown view type %q", s)
	}
}

// PersistentView is a message with a control that must survive restarts.
type PersistentView struct {
	MessageID   string    `db:"message_id"` // Unique
	ChannelID   string    `db:"channel_id"`
	ThreadID    string    `db:"thread_id"`
	ViewType    ViewType  `db:"view_type"`
	PostOwnerID string    `db:"post_owner_id"` // Empty when unknown
	IsSolved    bool      `db:"is_solved"`
	CreatedAt   time.Time `db:"created_at"`
}
