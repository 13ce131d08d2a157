package handlers

import (
	"fmt"
	"runtime/debug"

	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

// InteractionCreate handles slash commands, autocomplete, buttons and modals.
// A panic in any of them is logged and answered with a generic failure.
func (h *Handler) InteractionCreate(i *discordgo.InteractionCreate) {
	rp := h.reply(i)
	defer func() {
		if r := recover(); r != nil {
			utils.Error("Handlers", "Interaction", fmt.Sprintf("panic: %v\n%s", r, debug.Stack()))
			if i.Type != discordgo.InteractionApplicationCommandAutocomplete {
				_ = rp.ephemeral(genericFailure)
			}
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.CommandDispatcher(rp, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.HandleAutocomplete(i)
	case discordgo.InteractionMessageComponent:
		h.ComponentDispatcher(rp, i)
	case discordgo.InteractionModalSubmit:
		h.ModalDispatcher(rp, i)
	}
}
