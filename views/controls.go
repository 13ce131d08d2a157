// Package views models the interactive controls the bot attaches to
// messages, and restores them after a restart.
package views

import (
	"fmt"

	"coolbot/models"

	"github.com/bwmarrin/discordgo"
)

// Custom ids of the buttons routed back into the bot.
const (
	SolvedButtonID     = "solved_button"
	NotSolvedButtonID  = "not_solved_button"
	ConfirmSolveID     = "confirm_solve"
	ConfirmCancelID    = "confirm_cancel"
	SubmitInfoButtonID = "submit_info_button"
)

// Control is an interactive control bound to a message and its thread
// context.
type Control struct {
	Kind      models.ViewType
	MessageID string
	ChannelID string
	ThreadID  string
	OwnerID   string
	Solved    bool
	// Persisted is false for controls that only live in memory.
	Persisted bool
}

// Row converts a persisted control back into its store row.
func (c Control) Row() models.PersistentView {
	return models.PersistentView{
		MessageID:   c.MessageID,
		ChannelID:   c.ChannelID,
		ThreadID:    c.ThreadID,
		ViewType:    c.Kind,
		PostOwnerID: c.OwnerID,
		IsSolved:    c.Solved,
	}
}

// Accepts reports whether a button custom id belongs to this control.
func (c Control) Accepts(customID string) bool {
	switch c.Kind {
	case models.ViewSolved:
		return customID == SolvedButtonID
	case models.ViewNotSolved:
		return customID == NotSolvedButtonID
	case models.ViewConfirmClose:
		return customID == ConfirmSolveID || customID == ConfirmCancelID
	case models.ViewSubmitInfo:
		return customID == SubmitInfoButtonID
	}
	return false
}

// FromRow reconstructs the control for a stored row. Each kind has its own
// requirements; rows that do not meet them, or carry an unknown kind, are
// rejected.
func FromRow(row models.PersistentView) (Control, error) {
	kind, err := models.ParseViewType(string(row.ViewType))
	if err != nil {
		return Control{}, err
	}
	if row.MessageID == "" || row.ThreadID == "" {
		return Control{}, fmt.Errorf("view %q: missing message or thread id", row.MessageID)
	}
	c := Control{
		Kind:      kind,
		MessageID: row.MessageID,
		ChannelID: row.ChannelID,
		ThreadID:  row.ThreadID,
		OwnerID:   row.PostOwnerID,
		Solved:    row.IsSolved,
		Persisted: true,
	}
	switch kind {
	case models.ViewSolved, models.ViewNotSolved:
		// Owner is resolved again when the button is pressed.
	case models.ViewConfirmClose, models.ViewSubmitInfo:
		if c.OwnerID == "" {
			return Control{}, fmt.Errorf("%s view %s: missing bound user", kind, row.MessageID)
		}
	case models.ViewIncomplete:
		if c.OwnerID == "" {
			return Control{}, fmt.Errorf("incomplete view %s: missing owner", row.MessageID)
		}
	}
	return c, nil
}

// SolvedComponents is the "Mark as Solved" button row.
func SolvedComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Mark as Solved", Style: discordgo.SuccessButton, CustomID: SolvedButtonID},
		}},
	}
}

// NotSolvedComponents is the "Mark as Not Solved" button row.
func NotSolvedComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Mark as Not Solved", Style: discordgo.SecondaryButton, CustomID: NotSolvedButtonID},
		}},
	}
}

// ConfirmCloseComponents are the confirm/cancel buttons shown when a post's
// opening message disappears.
func ConfirmCloseComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Mark as Solved", Style: discordgo.SuccessButton, CustomID: ConfirmSolveID},
			discordgo.Button{Label: "Cancel", Style: discordgo.SecondaryButton, CustomID: ConfirmCancelID},
		}},
	}
}

// SubmitInfoComponents is the button that opens the dev-review form.
func SubmitInfoComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Submit Information", Style: discordgo.PrimaryButton, CustomID: SubmitInfoButtonID},
		}},
	}
}
