package handlers

import (
	"context"

	"coolbot/command"
	"coolbot/models"

	"github.com/bwmarrin/discordgo"
)

type commandFunc func(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error

func (h *Handler) commandTable() map[string]commandFunc {
	return map[string]commandFunc{
		command.Solved:           h.HandleSolved,
		command.SuggestSolved:    h.HandleSuggest,
		command.IncompletePost:   h.HandleIncomplete,
		command.ClosePost:        h.closeWith(closeModes[command.ClosePost]),
		command.LockPost:         h.closeWith(closeModes[command.LockPost]),
		command.LockClose:        h.closeWith(closeModes[command.LockClose]),
		command.DocSearch:        h.HandleDocSearch,
		command.ChatGPT:          h.HandleChatGPT,
		command.NeedsDevReview:   h.HandleNeedsDevReview,
		command.MoveToCommunity:  h.HandleMoveToCommunity,
		command.CreatePrivate:    h.HandleCreatePrivateThread,
		command.RequestDetails:   h.HandleRequestPrivateDetails,
		command.Page:             h.HandlePage,
		command.PageWSClose:      h.HandlePageWSClose,
		command.DocsSync:         h.HandleDocsSync,
		command.ContributorsSync: h.HandleContributorsSync,
		command.AddAutoresponse:  h.addRule(models.RuleAutoResponse, "response"),
		command.ViewAutoresponse: h.viewRules(models.RuleAutoResponse),
		command.DelAutoresponse:  h.deleteRule(models.RuleAutoResponse),
		command.AddAutomod:       h.addRule(models.RuleAutomod, "reason"),
		command.ViewAutomod:      h.viewRules(models.RuleAutomod),
		command.DelAutomod:       h.deleteRule(models.RuleAutomod),
		command.Eval:             h.HandleEval,
		command.Ping:             h.HandlePing,
	}
}

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func (h *Handler) CommandDispatcher(rp *reply, i *discordgo.InteractionCreate) {
	commandName := i.ApplicationCommandData().Name

	if requiredLevel, ok := command.Levels()[commandName]; ok {
		if !h.app.Auth.CheckPermission(i, requiredLevel) {
			_ = rp.ephemeral("🚫 You don't have permission to use this command.")
			return
		}
	}

	run, ok := h.commands[commandName]
	if !ok {
		_ = rp.ephemeral("🚫 Unknown command.")
		return
	}

	ctx, cancel := h.eventContext()
	defer cancel()
	if err := run(ctx, rp, i); err != nil {
		rp.fail(commandName, err)
	}
}

// options maps the invoked command's options by name.
func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	optionMap := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		optionMap[opt.Name] = opt
	}
	return optionMap
}

func stringOption(i *discordgo.InteractionCreate, name string) string {
	if opt, ok := options(i)[name]; ok {
		return opt.StringValue()
	}
	return ""
}
