package handlers

import (
	"context"
	"strings"

	"coolbot/lifecycle"
	"coolbot/models"
	"coolbot/moderation"
	"coolbot/views"

	"github.com/bwmarrin/discordgo"
)

const submitInfoModalPrefix = "submit_info_modal:"

// ComponentDispatcher routes button presses and select menus by custom id.
func (h *Handler) ComponentDispatcher(rp *reply, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID

	var run commandFunc
	switch {
	case customID == views.SolvedButtonID, customID == views.NotSolvedButtonID,
		customID == views.ConfirmSolveID, customID == views.ConfirmCancelID,
		customID == views.SubmitInfoButtonID:
		run = h.handleControl
	case strings.HasPrefix(customID, moderation.PageButtonPrefix+":"):
		run = h.handleRulePage
	case strings.HasPrefix(customID, docPingPrefix):
		run = h.handleDocPing
	case strings.HasPrefix(customID, pageConfirmPrefix):
		run = h.handlePageConfirm
	case customID == pageWSCloseConfirm:
		run = h.handlePageWSCloseConfirm
	case strings.HasPrefix(customID, lifecycle.IntakeButtonPrefix+":"):
		run = h.handleIntake
	case customID == getContributorRoleID:
		run = h.handleGetContributorRole
	case customID == enterGithubUsernameID:
		run = h.handleEnterGithubUsername
	case customID == privateThreadUserID:
		run = h.handlePrivateThreadUser
	case customID == privateDetailsUserID:
		run = h.handlePrivateDetailsUser
	case strings.HasPrefix(customID, privateSubmitPrefix):
		run = h.handlePrivateSubmit
	default:
		_ = rp.ephemeral("This button is no longer active.")
		return
	}

	ctx, cancel := h.eventContext()
	defer cancel()
	if err := run(ctx, rp, i); err != nil {
		rp.fail(customID, err)
	}
}

// ModalDispatcher routes modal submissions by custom id.
func (h *Handler) ModalDispatcher(rp *reply, i *discordgo.InteractionCreate) {
	customID := i.ModalSubmitData().CustomID

	var run commandFunc
	switch {
	case strings.HasPrefix(customID, submitInfoModalPrefix):
		run = h.handleSubmitInfo
	case customID == githubUsernameModalID:
		run = h.handleGithubUsername
	case strings.HasPrefix(customID, privateDetailsModalPrefix):
		run = h.handlePrivateDetails
	default:
		_ = rp.ephemeral("This form is no longer active.")
		return
	}

	ctx, cancel := h.eventContext()
	defer cancel()
	if err := run(ctx, rp, i); err != nil {
		rp.fail(customID, err)
	}
}

// handleControl runs the button of a registered lifecycle control.
func (h *Handler) handleControl(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	customID := i.MessageComponentData().CustomID
	c, ok := h.app.Lifecycle.Registry().Lookup(i.Message.ID)
	if !ok || !c.Accepts(customID) {
		return rp.ephemeral("This button is no longer active.")
	}

	if customID == views.SubmitInfoButtonID {
		if actorID(i) != c.OwnerID {
			return lifecycle.ErrNotAuthorized
		}
		return rp.modal(submitInfoModal(c.MessageID))
	}

	if err := rp.deferUpdate(); err != nil {
		return err
	}
	m := h.app.Lifecycle
	req := lifecycle.SolveRequest{ThreadID: c.ThreadID, Actor: actor(i), SourceMessageID: c.MessageID}
	var err error
	switch customID {
	case views.SolvedButtonID:
		_, err = m.MarkSolved(ctx, req)
	case views.NotSolvedButtonID:
		_, err = m.MarkNotSolved(ctx, req)
	case views.ConfirmSolveID:
		err = m.ConfirmClose(ctx, c, actor(i))
	case views.ConfirmCancelID:
		err = m.CancelConfirm(ctx, c, actor(i))
	}
	return err
}

func submitInfoModal(messageID string) *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(lifecycle.DevInfoFields))
	for _, f := range lifecycle.DevInfoFields {
		style := discordgo.TextInputShort
		if f.Long {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    f.ID,
				Label:       f.Label,
				Style:       style,
				Placeholder: f.Placeholder,
				Required:    true,
				MaxLength:   1000,
			},
		}})
	}
	return &discordgo.InteractionResponseData{
		CustomID:   submitInfoModalPrefix + messageID,
		Title:      "Submit Information",
		Components: rows,
	}
}

// modalValues collects the text inputs of a modal by custom id.
func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

func (h *Handler) handleSubmitInfo(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	data := i.ModalSubmitData()
	messageID := strings.TrimPrefix(data.CustomID, submitInfoModalPrefix)
	c, ok := h.app.Lifecycle.Registry().Lookup(messageID)
	if !ok || c.Kind != models.ViewSubmitInfo {
		return rp.ephemeral("This form is no longer active.")
	}
	if err := rp.deferEphemeral(); err != nil {
		return err
	}
	if err := h.app.Lifecycle.SubmitDevInfo(ctx, c, actor(i), lifecycle.DevInfo(modalValues(data))); err != nil {
		return err
	}
	return rp.ephemeral("Thanks! The team has been notified.")
}

// handleIntake turns the chat message behind a forum choice button into a
// post.
func (h *Handler) handleIntake(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	target, triggerID, sourceID, ok := lifecycle.ParseIntakeButtonID(i.MessageComponentData().CustomID)
	if !ok {
		return rp.ephemeral("This button is no longer active.")
	}
	if !h.app.Auth.IsAuthorized(actor(i)) {
		return lifecycle.ErrNotAuthorized
	}
	if err := rp.deferUpdate(); err != nil {
		return err
	}
	post, err := h.app.Lifecycle.CreatePostFromMessage(ctx, lifecycle.IntakeRequest{
		ChannelID: i.ChannelID,
		PromptID:  i.Message.ID,
		TriggerID: triggerID,
		SourceID:  sourceID,
		Target:    target,
		Actor:     actor(i),
	})
	if err != nil {
		return err
	}
	return rp.ephemeralf("Post created: <#%s>", post.ID)
}
