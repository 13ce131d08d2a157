package command

import (
	"coolbot/notify"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

// Names of the slash commands.
const (
	Solved           = "solved"
	SuggestSolved    = "suggest-to-solve-the-post"
	IncompletePost   = "incomplete-post"
	ClosePost        = "close-post"
	LockPost         = "lock-post"
	LockClose        = "lock-close"
	DocSearch        = "doc-search"
	NeedsDevReview   = "needs-dev-review"
	MoveToCommunity  = "move-to-community"
	CreatePrivate    = "create-private-thread"
	RequestDetails   = "request-private-details"
	ChatGPT          = "chat-gpt"
	Page             = "page"
	PageWSClose      = "page-ws-close"
	DocsSync         = "docs-sync"
	ContributorsSync = "contributors-sync"
	AddAutoresponse  = "add-autoresponse"
	ViewAutoresponse = "view-autoresponses"
	DelAutoresponse  = "delete-autoresponse"
	AddAutomod       = "add-automoderation-rule"
	ViewAutomod      = "view-automoderations"
	DelAutomod       = "delete-automoderation-rule"
	Eval             = "eval"
	Ping             = "ping"
)

// simple is a command without options.
type simple struct {
	name, description, level string
}

func (c simple) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.name, Description: c.description}
}

func (c simple) Level() string { return c.level }

// DocSearchCommand defines the /doc-search command.
type DocSearchCommand struct{}

// Definition returns the application command definition.
func (c *DocSearchCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        DocSearch,
		Description: "Search documentation",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "query",
				Description:  "The documentation page to link",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			},
		},
	}
}

func (c *DocSearchCommand) Level() string { return utils.LevelGuest }

// ChatGPTCommand defines the /chat-gpt command.
type ChatGPTCommand struct{}

// Definition returns the application command definition.
func (c *ChatGPTCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        ChatGPT,
		Description: "Let me ask ChatGPT for you",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "query",
				Description: "What do you want answer for?",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
		},
	}
}

func (c *ChatGPTCommand) Level() string { return utils.LevelGuest }

// NeedsDevReviewCommand defines the /needs-dev-review command.
type NeedsDevReviewCommand struct{}

// Definition returns the application command definition.
func (c *NeedsDevReviewCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        NeedsDevReview,
		Description: "Mark this post as needs developer review",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "user",
				Description: "Ask this user for more details before alerting the team",
				Type:        discordgo.ApplicationCommandOptionUser,
				Required:    false,
			},
		},
	}
}

func (c *NeedsDevReviewCommand) Level() string { return utils.LevelAuthorized }

// PageCommand defines the /page command.
type PageCommand struct{}

// Definition returns the application command definition.
func (c *PageCommand) Definition() *discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(notify.SeverityLabels))
	for p := 4; p >= 1; p-- {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: notify.SeverityLabels[p], Value: p})
	}
	return &discordgo.ApplicationCommand{
		Name:        Page,
		Description: "Alert the developer of any downtime or critical issues",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "title",
				Description: "The title of the page alert",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
			{
				Name:        "description",
				Description: "The description/message to send",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
			{
				Name:        "priority",
				Description: "The severity, 1 = lowest, 4 = critical (highest)",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    true,
				Choices:     choices,
			},
		},
	}
}

func (c *PageCommand) Level() string { return utils.LevelAuthorized }

// PageWSCloseCommand defines the /page-ws-close command.
type PageWSCloseCommand struct{}

// Definition returns the application command definition.
func (c *PageWSCloseCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        PageWSClose,
		Description: "Manually close a websocket created after a /page",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "id",
				Description: "The page id; all websockets are closed when omitted",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    false,
			},
		},
	}
}

func (c *PageWSCloseCommand) Level() string { return utils.LevelAuthorized }

// AddRuleCommand defines the add commands of both rule sets.
type AddRuleCommand struct {
	Name, Description, Subject, TextOption, TextDescription string
}

// Definition returns the application command definition.
func (c *AddRuleCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name,
		Description: c.Description,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "name",
				Description: "Unique name for the " + c.Subject,
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
			{
				Name:        "regex",
				Description: "Regex pattern to match in messages",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
			{
				Name:        c.TextOption,
				Description: c.TextDescription,
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
		},
	}
}

func (c *AddRuleCommand) Level() string { return utils.LevelAuthorized }

// DeleteRuleCommand defines the delete commands of both rule sets.
type DeleteRuleCommand struct {
	Name, Description, Subject string
}

// Definition returns the application command definition.
func (c *DeleteRuleCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name,
		Description: c.Description,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "identifier",
				Description: "Name or ID of the " + c.Subject + " to delete",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
		},
	}
}

func (c *DeleteRuleCommand) Level() string { return utils.LevelAuthorized }

// EvalCommand defines the /eval command.
type EvalCommand struct{}

// Definition returns the application command definition.
func (c *EvalCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        Eval,
		Description: "Execute SQL command on database (admin only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "sql",
				Description: "SQL command to execute",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
		},
	}
}

func (c *EvalCommand) Level() string { return utils.LevelAdmin }
