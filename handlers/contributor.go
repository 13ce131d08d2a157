package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coolbot/syncjobs"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	getContributorRoleID  = "get_contributor_role"
	enterGithubUsernameID = "enter_github_username"
	githubUsernameModalID = "github_username_modal"
	githubUsernameInputID = "github_username"
)

func contributorPanel() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Get Contributor Role",
			Description: "Click the button below to check if you're eligible for the Contributor role based on your GitHub contributions.",
			Color:       colorBlue,
		}},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Get Contributor Role", Style: discordgo.PrimaryButton, CustomID: getContributorRoleID},
		}}},
	}
}

// handleGetContributorRole starts a GitHub verification for the member.
func (h *Handler) handleGetContributorRole(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if i.GuildID == "" || i.Member == nil {
		return rp.ephemeral("This command can only be used in a server.")
	}
	role := h.app.Config.Roles.Contributor
	if role == "" {
		return rp.ephemeral("Contributor role not found. Please contact an admin.")
	}
	if utils.HasRole(i.Member, role) {
		return rp.ephemeral("You already have the contributors role!")
	}

	if err := rp.deferEphemeral(); err != nil {
		return err
	}
	token, err := h.app.Verifier.Issue(ctx, actorID(i))
	if err != nil {
		return err
	}
	return rp.embed(&discordgo.MessageEmbed{
		Title: "🔐 GitHub Verification Required",
		Description: "To verify your GitHub account ownership, please follow these steps:\n\n" +
			"**Step 1: Copy this verification token**\n" +
			"```\n" + token.Token + "\n```\n" +
			"**Step 2: Add token to your GitHub profile**\n" +
			"Go to your [GitHub profile](https://github.com/settings/profile) and temporarily add the token above to your bio field.\n\n" +
			"**Step 3: Enter your GitHub username**\n" +
			"Once you've added the token to your bio, click the button below to enter your GitHub username.",
		Color:  colorBlue,
		Footer: &discordgo.MessageEmbedFooter{Text: "Token expires in 24 hours. You can remove it from your bio after verification."},
	}, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: "Enter GitHub Username", Style: discordgo.PrimaryButton, CustomID: enterGithubUsernameID},
	}})
}

func (h *Handler) handleEnterGithubUsername(_ context.Context, rp *reply, _ *discordgo.InteractionCreate) error {
	return rp.modal(&discordgo.InteractionResponseData{
		CustomID: githubUsernameModalID,
		Title:    "Enter GitHub Username",
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    githubUsernameInputID,
				Label:       "GitHub Username",
				Style:       discordgo.TextInputShort,
				Placeholder: "Enter your GitHub username (case-sensitive)",
				Required:    true,
				MaxLength:   39,
			},
		}}},
	})
}

// handleGithubUsername verifies the submitted login and grants the role.
// The verification message is replaced with the outcome.
func (h *Handler) handleGithubUsername(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	login := strings.TrimSpace(modalValues(i.ModalSubmitData())[githubUsernameInputID])
	if err := rp.deferUpdate(); err != nil {
		return err
	}
	result := h.verifyContributor(ctx, i, login)
	return rp.edit("", []*discordgo.MessageEmbed{result}, []discordgo.MessageComponent{})
}

func (h *Handler) verifyContributor(ctx context.Context, i *discordgo.InteractionCreate, login string) *discordgo.MessageEmbed {
	failed := func(title, desc string) *discordgo.MessageEmbed {
		return &discordgo.MessageEmbed{Title: title, Description: desc, Color: colorRed}
	}

	err := h.app.Verifier.Verify(ctx, actorID(i), login)
	switch {
	case errors.Is(err, syncjobs.ErrNoToken), errors.Is(err, syncjobs.ErrTokenExpired):
		return failed("❌ Verification Expired", "Your verification token has expired. Please start over.")
	case errors.Is(err, syncjobs.ErrUserNotFound):
		return failed("❌ Verification Failed", fmt.Sprintf("GitHub user '%s' not found. Please check the username and try again.", login))
	case errors.Is(err, syncjobs.ErrTokenNotInBio):
		return failed("❌ Verification Failed", fmt.Sprintf("Verification token not found in %s's GitHub bio. "+
			"Please make sure you've added the token exactly as shown and try again.", login))
	case errors.Is(err, syncjobs.ErrNotContributor):
		return &discordgo.MessageEmbed{
			Title: "❌ Not a Contributor",
			Description: fmt.Sprintf("GitHub account **%s** was verified, but we couldn't find contributions to our repositories.\n\n", login) +
				"If you've made recent contributions, please wait for the next sync (every 12 hours) or ask an admin to sync coolbot's database.",
			Color: colorOrange,
		}
	case err != nil:
		utils.Warn("Handlers", "VerifyContributor", err.Error())
		return failed("❌ Verification Failed", fmt.Sprintf("Failed to fetch GitHub profile for '%s'. Please try again later.", login))
	}

	if err := h.app.Platform.AddRole(ctx, i.GuildID, actorID(i), h.app.Config.Roles.Contributor); err != nil {
		utils.Error("Handlers", "AddContributorRole", err.Error())
		return failed("❌ Permission Error", "I don't have permission to assign roles. Please contact an admin.")
	}
	return &discordgo.MessageEmbed{
		Title: "🎉 Welcome Contributor!",
		Description: "You have been granted the Contributor role!\n\n" +
			fmt.Sprintf("Verified GitHub account: **%s**\n\n", login) +
			"Thank you for your contributions to the project.",
		Color: colorGreen,
	}
}
