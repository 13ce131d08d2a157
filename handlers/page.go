package handlers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"coolbot/lifecycle"
	"coolbot/notify"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const (
	pageConfirmPrefix  = "page_confirm:"
	pageWSCloseConfirm = "page_ws_close_confirm"
)

// pendingPage is a page held back until its sender confirms it.
type pendingPage struct {
	title, description string
	priority           int
	userID             string
}

// HandlePage sends a page. A second page inside notify.RecentWindow is
// only sent once the sender confirms it.
func (h *Handler) HandlePage(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if !h.app.Publisher.Enabled() {
		return fmt.Errorf("ntfy topic: %w", lifecycle.ErrNotConfigured)
	}
	opts := options(i)
	page := pendingPage{
		title:       opts["title"].StringValue(),
		description: opts["description"].StringValue(),
		priority:    int(opts["priority"].IntValue()),
		userID:      actorID(i),
	}

	if recent, ok := h.app.Publisher.Recent(); ok {
		nonce := uuid.NewString()
		h.mu.Lock()
		h.pages[nonce] = page
		h.mu.Unlock()
		return rp.embed(holdUpEmbed(recent), discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Confirm", Style: discordgo.DangerButton, CustomID: pageConfirmPrefix + nonce},
		}})
	}

	if err := rp.deferEphemeral(); err != nil {
		return err
	}
	if err := h.sendPage(ctx, i, page); err != nil {
		return err
	}
	return rp.ephemeral("Page sent.")
}

func holdUpEmbed(recent notify.Recent) *discordgo.MessageEmbed {
	desc := recent.Message
	if utf8.RuneCountInString(desc) > 100 {
		desc = utils.Cut(desc, 100) + "..."
	}
	return &discordgo.MessageEmbed{
		Title:       "⚠️ Hold up!",
		Description: "A page was recently sent with similar details.",
		Color:       0xffa500,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Previous Page", Value: fmt.Sprintf("Sent <t:%d:R> by <@%s>", recent.SentAt.Unix(), recent.UserID)},
			{Name: "Title", Value: "`" + recent.Title + "`", Inline: true},
			{Name: "Priority", Value: fmt.Sprintf("`%d`", recent.Priority), Inline: true},
			{Name: "Description", Value: "```" + desc + "```"},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Click confirm to send anyway, or dismiss to cancel"},
	}
}

// handlePageConfirm sends a page held back by HandlePage.
func (h *Handler) handlePageConfirm(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	nonce := strings.TrimPrefix(i.MessageComponentData().CustomID, pageConfirmPrefix)
	h.mu.Lock()
	page, ok := h.pages[nonce]
	delete(h.pages, nonce)
	h.mu.Unlock()
	if !ok {
		return rp.ephemeral("This button is no longer active.")
	}
	if page.userID != actorID(i) {
		return lifecycle.ErrNotAuthorized
	}
	if err := rp.deferUpdate(); err != nil {
		return err
	}
	if err := h.sendPage(ctx, i, page); err != nil {
		return err
	}
	return h.r.InteractionResponseDelete(i.Interaction)
}

// sendPage posts a status message in the invoking channel, publishes the
// page linking back to it and starts listening for the answer.
func (h *Handler) sendPage(ctx context.Context, i *discordgo.InteractionCreate, page pendingPage) error {
	status, err := h.app.Platform.Send(ctx, i.ChannelID, &discordgo.MessageSend{Content: "Sending..."})
	if err != nil {
		return err
	}
	jump := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", i.GuildID, i.ChannelID, status.ID)

	name, icon := "unknown", ""
	if m := actor(i); m != nil && m.User != nil {
		name, icon = m.User.Username, m.User.AvatarURL("")
	}
	id, err := h.app.Publisher.Publish(ctx, notify.Page{
		Title:    fmt.Sprintf("%s | Sent by @%s", page.title, name),
		Message:  page.description,
		Priority: page.priority,
		Click:    jump,
		Icon:     icon,
	}, page.userID)

	content := fmt.Sprintf("Notification sent successfully.\n-# Title: `%s` | Description: `%s` | Priority: `%d` |  ID: `%s`",
		page.title, page.description, page.priority, id)
	if err != nil {
		content = fmt.Sprintf("An error occurred while sending the notification... %v", err)
	}
	if _, editErr := h.app.Platform.EditMessage(ctx, &discordgo.MessageEdit{ID: status.ID, Channel: i.ChannelID, Content: &content}); editErr != nil {
		h.app.PageLog("Failed to update page status message: %v", editErr)
	}
	if err != nil {
		return err
	}

	h.app.PageLog(" `%s` used **/page**. Title: `%s` | Description: `%s` | Priority: `%d` | ID: `%s`",
		name, page.title, page.description, page.priority, id)
	if h.app.Config.Ntfy.ResponseTopic != "" {
		h.app.Listener.Watch(h.base, id, jump)
	}
	return nil
}

// HandlePageWSClose closes one page listener by id, or all of them after a
// confirmation.
func (h *Handler) HandlePageWSClose(_ context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	active := h.app.Listener.Active()
	if len(active) == 0 {
		return rp.ephemeral("No active page websockets to close")
	}
	if id := stringOption(i, "id"); id != "" {
		if !h.app.Listener.Close(id) {
			return rp.ephemeralf("Invalid key provided. Received `%s`. Available keys: `%s`", id, strings.Join(active, ", "))
		}
		h.app.PageLog("<@%s> closed page websocket with id `%s`", actorID(i), id)
		return rp.ephemeralf("Closed websocket with ID `%s`", id)
	}
	return rp.send(&discordgo.InteractionResponseData{
		Content: "Are you sure you would like to close all currently open page websockets?\n**This action can't be undone**",
		Flags:   discordgo.MessageFlagsEphemeral,
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Confirm", Style: discordgo.DangerButton, CustomID: pageWSCloseConfirm},
		}}},
	})
}

func (h *Handler) handlePageWSCloseConfirm(_ context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if !h.app.Auth.IsAuthorized(actor(i)) {
		return lifecycle.ErrNotAuthorized
	}
	n := h.app.Listener.CloseAll()
	h.app.PageLog("<@%s> closed all page websockets", actorID(i))
	return rp.update(&discordgo.InteractionResponseData{
		Content:    fmt.Sprintf("Closed all active page websockets (%d).", n),
		Components: []discordgo.MessageComponent{},
	})
}
