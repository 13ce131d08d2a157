package handlers

import (
	"context"
	"fmt"
	"strings"

	"coolbot/lifecycle"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	privateThreadUserID       = "private_thread_user"
	privateDetailsUserID      = "private_details_user"
	privateSubmitPrefix       = "private_submit:"
	privateDetailsModalPrefix = "private_details_modal:"
	privateDetailsInputID     = "details"

	// privateThreadArchive is the auto archive duration of private threads, in minutes.
	privateThreadArchive = 1440
)

const privateThreadNotice = "This is a private thread, only you (%s) and the **CoolLabs team members** can view it.\n\n" +
	"Do not ping any other users here, as that will add them to the thread."

func channelURL(guildID, channelID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s", guildID, channelID)
}

func displayName(m *discordgo.Member, u *discordgo.User) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if m != nil && m.User != nil {
		u = m.User
	}
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// HandleCreatePrivateThread offers a user picker; the picked user and the
// invoker get a private thread in the general channel.
func (h *Handler) HandleCreatePrivateThread(_ context.Context, rp *reply, _ *discordgo.InteractionCreate) error {
	return rp.embed(&discordgo.MessageEmbed{
		Title:       "Create Private Thread",
		Description: "Select a user to create a private thread with.",
		Color:       colorBlue,
	}, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.UserSelectMenu,
			CustomID:    privateThreadUserID,
			Placeholder: "Select a user",
		},
	}})
}

func (h *Handler) handlePrivateThreadUser(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if !h.app.Auth.IsAuthorized(actor(i)) {
		return lifecycle.ErrNotAuthorized
	}
	data := i.MessageComponentData()
	if len(data.Values) == 0 {
		return rp.ephemeral("No valid users available.")
	}
	targetID := data.Values[0]
	general := h.app.Config.Channels.General
	if general == "" {
		return rp.ephemeral("Could not find the general channel.")
	}
	if err := rp.deferUpdate(); err != nil {
		return err
	}

	target := data.Resolved.Users[targetID]
	targetMember := data.Resolved.Members[targetID]
	if target == nil {
		target = &discordgo.User{ID: targetID, Username: targetID}
	}
	name := fmt.Sprintf("Private: %s & %s", displayName(actor(i), nil), displayName(targetMember, target))

	thread, err := h.app.Platform.StartThread(ctx, general, &discordgo.ThreadStart{
		Name:                utils.Cut(name, 100),
		AutoArchiveDuration: privateThreadArchive,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
	})
	if err != nil {
		utils.Error("Handlers", "CreatePrivateThread", err.Error())
		return rp.ephemeral("Failed to create private thread.")
	}
	for _, id := range []string{actorID(i), targetID} {
		if err := h.app.Platform.AddThreadMember(ctx, thread.ID, id); err != nil {
			utils.Warn("Handlers", "CreatePrivateThread", fmt.Sprintf("add %s: %v", id, err))
		}
	}

	both := fmt.Sprintf("<@%s> && <@%s>", actorID(i), targetID)
	if _, err := h.app.Platform.Send(ctx, i.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Hey %s, I’ve set up a private thread for your discussion. You can continue on: %s",
			both, channelURL(i.GuildID, thread.ID)),
	}); err != nil {
		utils.Warn("Handlers", "CreatePrivateThread", fmt.Sprintf("notice in %s: %v", i.ChannelID, err))
	}
	if _, err := h.app.Platform.Send(ctx, thread.ID, &discordgo.MessageSend{
		Content: "Hey " + both + "!",
		Embeds: []*discordgo.MessageEmbed{{
			Description: fmt.Sprintf(privateThreadNotice, target.Mention()),
			Color:       colorYellow,
		}},
	}); err != nil {
		return err
	}
	return rp.remove()
}

// HandleRequestPrivateDetails lets staff pick a post member who is then
// asked to submit details through a form only the team can read.
func (h *Handler) HandleRequestPrivateDetails(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if _, err := h.app.Lifecycle.Thread(ctx, i.ChannelID); err != nil {
		return err
	}
	members, err := h.app.Platform.ThreadMembers(ctx, i.ChannelID)
	if err != nil {
		return err
	}
	var opts []discordgo.SelectMenuOption
	for _, m := range members {
		if m.UserID == h.app.Platform.BotID() {
			continue
		}
		if len(opts) == 25 {
			break
		}
		opts = append(opts, discordgo.SelectMenuOption{Label: memberLabel(m), Value: m.UserID})
	}
	if len(opts) == 0 {
		return rp.ephemeral("No members available.")
	}
	return rp.embed(&discordgo.MessageEmbed{
		Title:       "Request Private Details",
		Description: "Select the user who should submit the details.",
		Color:       colorBlue,
	}, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    privateDetailsUserID,
			Placeholder: "Select a user",
			Options:     opts,
		},
	}})
}

func (h *Handler) handlePrivateDetailsUser(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if !h.app.Auth.IsAuthorized(actor(i)) {
		return lifecycle.ErrNotAuthorized
	}
	data := i.MessageComponentData()
	if len(data.Values) == 0 {
		return rp.ephemeral("No members available.")
	}
	targetID := data.Values[0]
	if err := rp.deferUpdate(); err != nil {
		return err
	}
	if _, err := h.app.Platform.Send(ctx, i.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Hey <@%s>!", targetID),
		Embeds: []*discordgo.MessageEmbed{{
			Description: fmt.Sprintf("<@%s> needs some details from you. Please click the button below to submit.", actorID(i)),
			Color:       colorYellow,
		}},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Submit Information",
				Style:    discordgo.PrimaryButton,
				CustomID: privateSubmitPrefix + actorID(i) + ":" + targetID,
			},
		}}},
	}); err != nil {
		return err
	}
	return rp.remove()
}

// parsePair splits "<prefix><a>:<b>".
func parsePair(customID, prefix string) (a, b string, ok bool) {
	a, b, ok = strings.Cut(strings.TrimPrefix(customID, prefix), ":")
	return a, b, ok && a != "" && b != ""
}

func (h *Handler) handlePrivateSubmit(_ context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	requesterID, targetID, ok := parsePair(i.MessageComponentData().CustomID, privateSubmitPrefix)
	if !ok {
		return rp.ephemeral("This button is no longer active.")
	}
	if actorID(i) != targetID {
		return rp.ephemeral("You are not authorized to submit this information.")
	}
	return rp.modal(&discordgo.InteractionResponseData{
		CustomID: privateDetailsModalPrefix + requesterID + ":" + i.Message.ID,
		Title:    "Provide Private Details",
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    privateDetailsInputID,
				Label:       "Details:",
				Style:       discordgo.TextInputParagraph,
				Placeholder: "Type your response here...",
				MaxLength:   1000,
			},
		}}},
	})
}

// handlePrivateDetails forwards a submission to the private data thread and
// retires the request message.
func (h *Handler) handlePrivateDetails(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	data := i.ModalSubmitData()
	requesterID, messageID, ok := parsePair(data.CustomID, privateDetailsModalPrefix)
	if !ok {
		return rp.ephemeral("This form is no longer active.")
	}
	dest := h.app.Config.Channels.PrivateDataThread
	if dest == "" {
		return fmt.Errorf("private data thread: %w", lifecycle.ErrNotConfigured)
	}
	if err := rp.deferUpdate(); err != nil {
		return err
	}

	details := strings.TrimSpace(modalValues(data)[privateDetailsInputID])
	if details == "" {
		details = "*No content provided*"
	}
	if _, err := h.app.Platform.Send(ctx, dest, &discordgo.MessageSend{
		Content: fmt.Sprintf("Hey <@%s>, you have received a submission.", requesterID),
		Embeds: []*discordgo.MessageEmbed{{
			Description: fmt.Sprintf("- From:\n  - <@%s>\n- Submission\n  - %s\n- Link to post\n  - %s",
				actorID(i), details, channelURL(i.GuildID, i.ChannelID)),
			Color: colorBlue,
		}},
	}); err != nil {
		return err
	}

	embeds := []*discordgo.MessageEmbed{{
		Description: fmt.Sprintf("<@%s> received your submission.", requesterID),
		Color:       colorGreen,
	}}
	components := []discordgo.MessageComponent{}
	if _, err := h.app.Platform.EditMessage(ctx, &discordgo.MessageEdit{
		ID:         messageID,
		Channel:    i.ChannelID,
		Embeds:     &embeds,
		Components: &components,
	}); err != nil {
		utils.Warn("Handlers", "PrivateDetails", fmt.Sprintf("message %s: %v", messageID, err))
	}
	return nil
}
