package command

import (
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

// Command is an interface for application commands.
type Command interface {
	Definition() *discordgo.ApplicationCommand
	// Level is the permission level required to run the command.
	Level() string
}

// AllCommands holds all the command instances.
var AllCommands = []Command{
	simple{Solved, "Mark the current post as solved", utils.LevelGuest},
	simple{SuggestSolved, "Suggest the post owner to mark the post as solved", utils.LevelAuthorized},
	simple{IncompletePost, "Mark the current post as incomplete and request more info.", utils.LevelAuthorized},
	simple{ClosePost, "Archives the current post", utils.LevelAuthorized},
	simple{LockPost, "Locks the current post, preventing further replies.", utils.LevelAuthorized},
	simple{LockClose, "Locks and archives the current post.", utils.LevelAuthorized},
	simple{MoveToCommunity, "Move the current support post to Community Support channel.", utils.LevelGuest},
	simple{CreatePrivate, "Create a private thread with a user", utils.LevelAuthorized},
	simple{RequestDetails, "Request private details from a user in this post", utils.LevelAuthorized},
	&DocSearchCommand{},
	&ChatGPTCommand{},
	&NeedsDevReviewCommand{},
	&PageCommand{},
	&PageWSCloseCommand{},
	simple{DocsSync, "Syncs documentation database from remote URL", utils.LevelAuthorized},
	simple{ContributorsSync, "Force sync contributors from GitHub API", utils.LevelAuthorized},
	&AddRuleCommand{
		Name: AddAutoresponse, Description: "Add a new autoresponse message", Subject: "autoresponse",
		TextOption: "response", TextDescription: "Response message to send (use ${usermention} to mention the user)",
	},
	simple{ViewAutoresponse, "View all autoresponse messages", utils.LevelAuthorized},
	&DeleteRuleCommand{Name: DelAutoresponse, Description: "Delete an autoresponse message by name or ID", Subject: "autoresponse"},
	&AddRuleCommand{
		Name: AddAutomod, Description: "Add a new automoderation rule", Subject: "automoderation rule",
		TextOption: "reason", TextDescription: "Reason for the automoderation rule",
	},
	simple{ViewAutomod, "View all automoderation rules", utils.LevelAuthorized},
	&DeleteRuleCommand{Name: DelAutomod, Description: "Delete an automoderation rule by name or ID", Subject: "automoderation rule"},
	&EvalCommand{},
	simple{Ping, "Check the bot's status", utils.LevelGuest},
}

// GetCommandDefinitions returns a slice of all command definitions.
func GetCommandDefinitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, len(AllCommands))
	for i, cmd := range AllCommands {
		defs[i] = cmd.Definition()
	}
	return defs
}

// Levels maps each command name to its permission level.
func Levels() map[string]string {
	levels := make(map[string]string, len(AllCommands))
	for _, cmd := range AllCommands {
		levels[cmd.Definition().Name] = cmd.Level()
	}
	return levels
}
