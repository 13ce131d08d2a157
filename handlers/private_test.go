package handlers

import (
	"testing"

	"coolbot/command"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pick(customID, channelID, messageID string, m *discordgo.Member, resolved discordgo.MessageComponentInteractionDataResolved, values ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "guild",
		ChannelID: channelID,
		Member:    m,
		Message:   &discordgo.Message{ID: messageID, ChannelID: channelID},
		Data: discordgo.MessageComponentInteractionData{
			CustomID:      customID,
			ComponentType: discordgo.SelectMenuComponent,
			Resolved:      resolved,
			Values:        values,
		},
	}}
}

func submit(customID, channelID string, m *discordgo.Member, fields map[string]string) *discordgo.InteractionCreate {
	var rows []discordgo.MessageComponent
	for id, v := range fields {
		rows = append(rows, &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: id, Value: v},
		}})
	}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionModalSubmit,
		GuildID:   "guild",
		ChannelID: channelID,
		Member:    m,
		Data:      discordgo.ModalSubmitInteractionData{CustomID: customID, Components: rows},
	}}
}

func TestCreatePrivateThread(t *testing.T) {
	f := newFixture(t)
	f.fake.AddText("lobby")
	staff := member("s1", staffRole)

	f.h.InteractionCreate(slash(command.CreatePrivate, "lobby", staff))
	resp := f.rec.last(t)
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "Create Private Thread", resp.Data.Embeds[0].Title)
	menu := resp.Data.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	assert.Equal(t, discordgo.UserSelectMenu, menu.MenuType)
	assert.Equal(t, privateThreadUserID, menu.CustomID)

	resolved := discordgo.MessageComponentInteractionDataResolved{
		Users: map[string]*discordgo.User{"u2": {ID: "u2", Username: "alice"}},
	}
	f.h.InteractionCreate(pick(privateThreadUserID, "lobby", "picker", staff, resolved, "u2"))

	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, f.rec.last(t).Type)
	assert.Equal(t, 1, f.rec.deleted)

	require.NotEmpty(t, f.fake.Started)
	thread := f.fake.Started[len(f.fake.Started)-1]
	assert.Equal(t, "general", thread.ParentID)
	assert.Equal(t, "Private: user-s1 & alice", thread.Name)
	assert.Equal(t, discordgo.ChannelTypeGuildPrivateThread, thread.Type)
	assert.Equal(t, privateThreadArchive, thread.ThreadMetadata.AutoArchiveDuration)

	members, err := f.fake.ThreadMembers(t.Context(), thread.ID)
	require.NoError(t, err)
	var ids []string
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	assert.ElementsMatch(t, []string{"s1", "u2"}, ids)

	notice := f.fake.BotMessages("lobby")
	require.Len(t, notice, 1)
	assert.Equal(t, "Hey <@s1> && <@u2>, I’ve set up a private thread for your discussion. You can continue on: "+
		"https://discord.com/channels/guild/"+thread.ID, notice[0].Content)

	inside := f.fake.BotMessages(thread.ID)
	require.Len(t, inside, 1)
	assert.Equal(t, "Hey <@s1> && <@u2>!", inside[0].Content)
	require.Len(t, inside[0].Embeds, 1)
	assert.Contains(t, inside[0].Embeds[0].Description, "only you (<@u2>) and the **CoolLabs team members**")
	assert.Equal(t, colorYellow, inside[0].Embeds[0].Color)
}

func TestCreatePrivateThreadFailures(t *testing.T) {
	f := newFixture(t)

	f.h.InteractionCreate(pick(privateThreadUserID, "random", "picker", member("u1"),
		discordgo.MessageComponentInteractionDataResolved{}, "u2"))
	assert.Equal(t, "You don't have permission to do this.", content(t, f.rec.last(t)))

	f.fake.Errors["StartThread"] = assert.AnError
	f.h.InteractionCreate(pick(privateThreadUserID, "random", "picker", member("s1", staffRole),
		discordgo.MessageComponentInteractionDataResolved{}, "u2"))
	require.NotEmpty(t, f.rec.followups)
	assert.Equal(t, "Failed to create private thread.", f.rec.followups[len(f.rec.followups)-1].Content)
	assert.Zero(t, f.rec.deleted)
}

func TestRequestPrivateDetails(t *testing.T) {
	f := newFixture(t)
	f.fake.AddForum("private-data")
	f.app.Config.Channels.PrivateDataThread = "private-data"
	f.fake.AddThread("t1", "support", "owner")
	f.fake.SetThreadMembers("t1",
		&discordgo.ThreadMember{UserID: "owner", Member: member("owner")},
		&discordgo.ThreadMember{UserID: botID},
	)
	staff := member("s1", staffRole)

	// Picker lists the post's members without the bot.
	f.h.InteractionCreate(slash(command.RequestDetails, "t1", staff))
	menu := f.rec.last(t).Data.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	assert.Equal(t, privateDetailsUserID, menu.CustomID)
	require.Len(t, menu.Options, 1)
	assert.Equal(t, "owner", menu.Options[0].Value)

	f.h.InteractionCreate(pick(privateDetailsUserID, "t1", "picker", staff,
		discordgo.MessageComponentInteractionDataResolved{}, "owner"))
	assert.Equal(t, 1, f.rec.deleted)
	sent := f.fake.BotMessages("t1")
	require.Len(t, sent, 1)
	request := sent[0]
	assert.Equal(t, "Hey <@owner>!", request.Content)
	assert.Equal(t, "<@s1> needs some details from you. Please click the button below to submit.", request.Embeds[0].Description)
	button := request.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, "private_submit:s1:owner", button.CustomID)

	// Only the picked user may open the form.
	openForm := func(m *discordgo.Member) *discordgo.InteractionResponse {
		ic := pick(button.CustomID, "t1", request.ID, m, discordgo.MessageComponentInteractionDataResolved{})
		ic.Data = discordgo.MessageComponentInteractionData{CustomID: button.CustomID, ComponentType: discordgo.ButtonComponent}
		f.h.InteractionCreate(ic)
		return f.rec.last(t)
	}
	assert.Equal(t, "You are not authorized to submit this information.", content(t, openForm(member("stranger"))))
	form := openForm(member("owner"))
	assert.Equal(t, discordgo.InteractionResponseModal, form.Type)
	assert.Equal(t, "Provide Private Details", form.Data.Title)
	assert.Equal(t, privateDetailsModalPrefix+"s1:"+request.ID, form.Data.CustomID)

	f.h.InteractionCreate(submit(form.Data.CustomID, "t1", member("owner"),
		map[string]string{privateDetailsInputID: "db password is hunter2"}))
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, f.rec.last(t).Type)

	forwarded := f.fake.BotMessages("private-data")
	require.Len(t, forwarded, 1)
	assert.Equal(t, "Hey <@s1>, you have received a submission.", forwarded[0].Content)
	assert.Equal(t, "- From:\n  - <@owner>\n- Submission\n  - db password is hunter2\n- Link to post\n  - https://discord.com/channels/guild/t1",
		forwarded[0].Embeds[0].Description)

	retired := f.fake.BotMessages("t1")[0]
	require.Len(t, retired.Embeds, 1)
	assert.Equal(t, "<@s1> received your submission.", retired.Embeds[0].Description)
	assert.Equal(t, colorGreen, retired.Embeds[0].Color)
	assert.Empty(t, retired.Components)
}

func TestRequestPrivateDetailsEdgeCases(t *testing.T) {
	f := newFixture(t)
	staff := member("s1", staffRole)

	f.h.InteractionCreate(slash(command.RequestDetails, "random", staff))
	assert.Equal(t, "This command can only be used in a post.", content(t, f.rec.last(t)))

	f.fake.AddThread("t2", "support", "owner")
	f.h.InteractionCreate(slash(command.RequestDetails, "t2", staff))
	assert.Equal(t, "No members available.", content(t, f.rec.last(t)))

	f.h.InteractionCreate(slash(command.RequestDetails, "t2", member("u1")))
	assert.Equal(t, "🚫 You don't have permission to use this command.", content(t, f.rec.last(t)))

	// Without a destination the submission is refused and nothing is sent.
	f.h.InteractionCreate(submit(privateDetailsModalPrefix+"s1:m1", "t2", member("owner"),
		map[string]string{privateDetailsInputID: ""}))
	assert.Equal(t, "This feature is not configured.", content(t, f.rec.last(t)))
	assert.Empty(t, f.fake.BotMessages("t2"))
}

func TestPrivateDetailsEmptySubmission(t *testing.T) {
	f := newFixture(t)
	f.fake.AddForum("private-data")
	f.app.Config.Channels.PrivateDataThread = "private-data"

	f.h.InteractionCreate(submit(privateDetailsModalPrefix+"s1:gone", "random", member("owner"),
		map[string]string{privateDetailsInputID: "  "}))

	forwarded := f.fake.BotMessages("private-data")
	require.Len(t, forwarded, 1)
	assert.Contains(t, forwarded[0].Embeds[0].Description, "- Submission\n  - *No content provided*\n")
}

func TestParsePair(t *testing.T) {
	a, b, ok := parsePair("private_submit:1:2", privateSubmitPrefix)
	assert.True(t, ok)
	assert.Equal(t, "1", a)
	assert.Equal(t, "2", b)

	_, _, ok = parsePair("private_submit:1", privateSubmitPrefix)
	assert.False(t, ok)
	_, _, ok = parsePair("private_submit::2", privateSubmitPrefix)
	assert.False(t, ok)
}
