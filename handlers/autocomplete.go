package handlers

import (
	"log"

	"coolbot/command"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

// maxChoices is the most autocomplete choices Discord accepts.
const maxChoices = 25

// HandleAutocomplete handles all autocomplete interactions.
func (h *Handler) HandleAutocomplete(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case command.DocSearch:
		for _, opt := range data.Options {
			if opt.Name == "query" && opt.Focused {
				h.handleDocAutocomplete(i, opt.StringValue())
			}
		}
	}
}

func (h *Handler) handleDocAutocomplete(i *discordgo.InteractionCreate, current string) {
	ctx, cancel := h.eventContext()
	defer cancel()

	docs, err := h.app.Store.SearchDocs(ctx, current, maxChoices)
	if err != nil {
		log.Printf("Error searching docs for autocomplete: %v", err)
		return
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(docs))
	for _, doc := range docs {
		name := utils.Cut(doc.Name, 100)
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: name,
		})
	}

	err = h.r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		log.Printf("Error responding to autocomplete interaction: %v", err)
	}
}
