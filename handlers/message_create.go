package handlers

import (
	"fmt"
	"runtime/debug"
	"slices"

	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

// MessageCreate will be called every time a new message is created on any channel that the authenticated bot has access to.
func (h *Handler) MessageCreate(m *discordgo.MessageCreate) {
	// Ignore all messages created by the bot itself
	if m.Author == nil || m.Author.ID == h.app.Platform.BotID() {
		return
	}
	defer h.recoverEvent("MessageCreate")

	ctx, cancel := h.eventContext()
	defer cancel()

	if err := h.app.Lifecycle.HandleMessage(ctx, m.Message); err != nil {
		utils.Error("Handlers", "Lifecycle", err.Error())
	}

	member := m.Member
	if member != nil && member.User == nil {
		copied := *member
		copied.User = m.Author
		member = &copied
	}

	handled, err := h.app.Lifecycle.OfferIntake(ctx, m.Message, member)
	if err != nil {
		utils.Error("Handlers", "OfferIntake", err.Error())
	}
	if handled {
		return
	}

	if h.isContributorPanelRequest(m.Message) {
		if _, err := h.app.Platform.Send(ctx, m.ChannelID, contributorPanel()); err != nil {
			utils.Warn("Handlers", "ContributorPanel", err.Error())
		}
		return
	}

	if m.Author.Bot {
		return
	}
	if err := h.app.Moderator.HandleMessage(ctx, m.Message, member); err != nil {
		utils.Error("Handlers", "Moderation", err.Error())
	}
}

func (h *Handler) isContributorPanelRequest(msg *discordgo.Message) bool {
	channel := h.app.Config.Channels.Contributors
	if channel == "" || msg.ChannelID != channel {
		return false
	}
	botID := h.app.Platform.BotID()
	return slices.ContainsFunc(msg.Mentions, func(u *discordgo.User) bool { return u != nil && u.ID == botID })
}

// recoverEvent keeps a panicking gateway handler from taking the process down.
func (h *Handler) recoverEvent(event string) {
	if r := recover(); r != nil {
		utils.Error("Handlers", event, fmt.Sprintf("panic: %v\n%s", r, debug.Stack()))
	}
}
