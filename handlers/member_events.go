package handlers

import (
	"log"

	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

// MemberRemove schedules the open support posts of a departed member to
// close.
func (h *Handler) MemberRemove(m *discordgo.GuildMemberRemove) {
	if m.Member == nil || m.User == nil {
		return
	}
	defer h.recoverEvent("MemberRemove")
	log.Printf("Member %s (%s) left guild %s", m.User.Username, m.User.ID, m.GuildID)

	ctx, cancel := h.eventContext()
	defer cancel()
	scheduled, err := h.app.Lifecycle.HandleMemberLeave(ctx, m.GuildID, m.User.ID)
	if err != nil {
		utils.Error("Handlers", "MemberRemove", err.Error())
		return
	}
	if scheduled > 0 {
		log.Printf("Scheduled %d posts of %s to close", scheduled, m.User.ID)
	}
}

// MessageDelete watches for the opening message of a support post being
// deleted. BeforeDelete is only set when the message was in the state cache.
func (h *Handler) MessageDelete(m *discordgo.MessageDelete) {
	if m.Message == nil {
		return
	}
	defer h.recoverEvent("MessageDelete")

	ctx, cancel := h.eventContext()
	defer cancel()
	if err := h.app.Lifecycle.HandleStarterDeleted(ctx, m.ChannelID, m.ID, m.BeforeDelete); err != nil {
		utils.Error("Handlers", "MessageDelete", err.Error())
	}
}
