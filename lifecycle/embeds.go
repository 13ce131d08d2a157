package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"coolbot/models"

	"github.com/bwmarrin/discordgo"
)

const (
	colorGreen  = 0x2ecc71
	colorOrange = 0xe67e22
	colorRed    = 0xe74c3c
	colorBlue   = 0x3498db
)

const guidanceText = "Please remember that everyone in this server helps others voluntarily.\n\n" +
	"Do not ping anyone (including Admins, Mods, Community Experts, or Developers) for attention, " +
	"and avoid posting your question or request in any other channel.\n\n" +
	"Failure to follow these guidelines may result in temporary exclusion from the server.\n\n" +
	"While you wait, you can refer to our [documentation](https://coolify.io/docs/) for potential solutions."

func mention(userID string) string {
	return "<@" + userID + ">"
}

// relative renders a Discord relative timestamp.
func relative(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func strike(s string) string {
	if s == "" || strings.HasPrefix(s, "~~") {
		return s
	}
	return "~~" + s + "~~"
}

// struck returns a copy of the first embed with its title and description
// struck through and note appended.
func struck(embeds []*discordgo.MessageEmbed, note string) []*discordgo.MessageEmbed {
	if len(embeds) == 0 || embeds[0] == nil {
		if note == "" {
			return []*discordgo.MessageEmbed{}
		}
		return []*discordgo.MessageEmbed{{Description: note}}
	}
	e := *embeds[0]
	e.Title = strike(e.Title)
	e.Description = strike(e.Description)
	if note != "" {
		e.Description += "\n\n" + note
	}
	return []*discordgo.MessageEmbed{&e}
}

func guidanceEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "Note", Description: guidanceText, Color: colorBlue}
}

func solvedEmbed(actorID string, closeAt time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Post Solved",
		Description: fmt.Sprintf("%s marked this post as solved.\nIt will be automatically closed and locked %s.",
			mention(actorID), relative(closeAt)),
		Color: colorGreen,
	}
}

func notSolvedEmbed(previous []*discordgo.MessageEmbed, actorID string) *discordgo.MessageEmbed {
	desc := ""
	if len(previous) > 0 && previous[0] != nil {
		desc = strike(previous[0].Description) + "\n\n"
	}
	return &discordgo.MessageEmbed{
		Title:       "Post Not Solved",
		Description: desc + fmt.Sprintf("**Post marked as NOT solved by %s.**", mention(actorID)),
		Color:       colorOrange,
	}
}

func suggestionEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Mark as Solved?",
		Description: "It looks like your issue might be solved. If that's the case, " +
			"please click the button below to mark this post as solved.",
		Color: colorGreen,
	}
}

func starterDeletedEmbed(closeAt time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "First Message Deleted",
		Description: "The first message in this post has been deleted.\n\n" +
			"**Would you like to mark this as solved?**\n\n" +
			fmt.Sprintf("*If no action is taken, this post will automatically close %s.*", relative(closeAt)),
		Color: colorOrange,
	}
}

func ownerLeftEmbed(ownerID string, closeAt time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Post Owner Left",
		Description: fmt.Sprintf("%s has left the server.\n\nThis post will automatically close %s.",
			mention(ownerID), relative(closeAt)),
		Color: colorOrange,
	}
}

func incompleteEmbed(closeAt time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Incomplete support post",
		Description: "We’re happy to help, but we need a bit more info first.\n\n" +
			fmt.Sprintf("Please edit your post or reply here and share the required details %s.\n\n", relative(closeAt)) +
			"The post will close automatically if you do not respond.",
		Color: colorOrange,
	}
}

func closedByEmbed(actorID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Post Closed",
		Description: fmt.Sprintf("This post was closed by %s.", mention(actorID)),
		Color:       colorRed,
	}
}

// closureNotice is posted when a scheduled closure fires.
func closureNotice(reason models.CloseReason) *discordgo.MessageEmbed {
	switch reason {
	case models.CloseOwnerLeft:
		return &discordgo.MessageEmbed{
			Title:       "Post Solved",
			Description: "This post has been marked as solved since the owner left the server.",
			Color:       colorGreen,
		}
	case models.CloseStarterDeleted:
		return &discordgo.MessageEmbed{
			Title:       "Post Automatically Closed",
			Description: "This post has been marked as solved due to inactivity from the post owner.",
			Color:       colorGreen,
		}
	case models.CloseIncomplete:
		return &discordgo.MessageEmbed{
			Title:       "Post automatically closed",
			Description: "No response from the post owner, so marking this as solved.",
			Color:       colorGreen,
		}
	default:
		return &discordgo.MessageEmbed{
			Title:       "Post Closed",
			Description: "This post was marked as solved and has now been closed.",
			Color:       colorGreen,
		}
	}
}
