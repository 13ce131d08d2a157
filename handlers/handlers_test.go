package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"coolbot/bot"
	"coolbot/classifier"
	"coolbot/command"
	"coolbot/database"
	"coolbot/lifecycle"
	"coolbot/models"
	"coolbot/moderation"
	"coolbot/platform/platformtest"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	botID     = "bot"
	staffRole = "staff"
	adminRole = "admin"
)

// recorder keeps every interaction answer in order.
type recorder struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	followups []*discordgo.WebhookParams
	deleted   int
}

func (r *recorder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
	return nil
}

func (r *recorder) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, edit)
	return &discordgo.Message{}, nil
}

func (r *recorder) InteractionResponseDelete(_ *discordgo.Interaction, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted++
	return nil
}

func (r *recorder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followups = append(r.followups, data)
	return &discordgo.Message{}, nil
}

// last returns the only immediate answer, failing when there are more.
func (r *recorder) last(t *testing.T) *discordgo.InteractionResponse {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.responses)
	return r.responses[len(r.responses)-1]
}

func (r *recorder) lastEdit(t *testing.T) *discordgo.WebhookEdit {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.edits)
	return r.edits[len(r.edits)-1]
}

type fixture struct {
	fake *platformtest.Fake
	rec  *recorder
	app  *bot.App
	h    *Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := platformtest.New(botID)
	for _, id := range []string{"support", "community", "general", "contributors", "random"} {
		fake.AddForum(id)
	}

	store, err := database.InitDB(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &models.Config{
		Channels: models.ChannelConfig{
			Support:          "support",
			CommunitySupport: "community",
			General:          "general",
			Contributors:     "contributors",
		},
		Roles: models.RoleConfig{
			Authorized:  staffRole,
			Admin:       adminRole,
			Contributor: "contributor",
		},
		Tags: models.TagConfig{
			Solved:     "tag-solved",
			Unanswered: "tag-unanswered",
		},
	}
	app := bot.New(cfg, store, nil, fake)
	t.Cleanup(app.Lifecycle.Closer().Stop)

	rec := &recorder{}
	return &fixture{fake: fake, rec: rec, app: app, h: New(app, rec)}
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: "user-" + id}, Roles: roles}
}

func strOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func slash(name, channelID string, m *discordgo.Member, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild",
		ChannelID: channelID,
		Member:    m,
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func press(customID, messageID string, m *discordgo.Member) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "guild",
		ChannelID: "random",
		Member:    m,
		Message:   &discordgo.Message{ID: messageID, ChannelID: "random"},
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: discordgo.ButtonComponent},
	}}
}

func content(t *testing.T, resp *discordgo.InteractionResponse) string {
	t.Helper()
	require.NotNil(t, resp.Data)
	return resp.Data.Content
}

func TestCommandPermissionDenied(t *testing.T) {
	f := newFixture(t)

	f.h.InteractionCreate(slash(command.Eval, "random", member("u1", staffRole), strOpt("sql", "SELECT 1")))

	resp := f.rec.last(t)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, "🚫 You don't have permission to use this command.", content(t, resp))
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
}

func TestPing(t *testing.T) {
	f := newFixture(t)

	f.h.InteractionCreate(slash(command.Ping, "random", member("u1")))

	resp := f.rec.last(t)
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "I'm Alive!", resp.Data.Embeds[0].Title)
	assert.Contains(t, resp.Data.Embeds[0].Description, "**Response time:** 0.00ms")
}

func TestSolvedCommand(t *testing.T) {
	f := newFixture(t)
	f.fake.AddThread("t1", "support", "owner", "tag-unanswered")
	f.fake.Post("t1", &discordgo.User{ID: "owner"}, "my app crashes")

	f.h.InteractionCreate(slash(command.Solved, "t1", member("owner")))

	assert.Equal(t, "Post marked as solved.", content(t, f.rec.last(t)))
	assert.Contains(t, f.fake.Thread("t1").AppliedTags, "tag-solved")
	assert.NotEmpty(t, f.fake.BotMessages("t1"))
}

func TestSolvedOutsideThread(t *testing.T) {
	f := newFixture(t)

	f.h.InteractionCreate(slash(command.Solved, "random", member("u1")))

	assert.Equal(t, "This command can only be used in a post.", content(t, f.rec.last(t)))
}

func TestRuleCommands(t *testing.T) {
	f := newFixture(t)
	staff := member("s1", staffRole)
	run := func(ic *discordgo.InteractionCreate) string {
		f.h.InteractionCreate(ic)
		return content(t, f.rec.last(t))
	}

	got := run(slash(command.AddAutoresponse, "random", staff,
		strOpt("name", "greeting"), strOpt("regex", "(?i)hello"), strOpt("response", "Hi there!")))
	assert.Contains(t, got, "Added autoresponse `greeting`")

	got = run(slash(command.AddAutoresponse, "random", staff,
		strOpt("name", "greeting"), strOpt("regex", "hey"), strOpt("response", "Hi!")))
	assert.Equal(t, "A rule with that name already exists.", got)

	got = run(slash(command.AddAutomod, "random", staff,
		strOpt("name", "broken"), strOpt("regex", "("), strOpt("reason", "spam")))
	assert.Contains(t, got, "Could not save the rule")

	f.h.InteractionCreate(slash(command.ViewAutoresponse, "random", staff))
	resp := f.rec.last(t)
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "Available Autoresponses", resp.Data.Embeds[0].Title)
	assert.Equal(t, "(Page 1/1)", resp.Data.Embeds[0].Footer.Text)

	assert.Equal(t, "No automoderation rules found.", run(slash(command.ViewAutomod, "random", staff)))

	got = run(slash(command.DelAutoresponse, "random", staff, strOpt("identifier", "greeting")))
	assert.Contains(t, got, "Deleted autoresponse `greeting`")

	got = run(slash(command.DelAutoresponse, "random", staff, strOpt("identifier", "greeting")))
	assert.Equal(t, "No rule matches that name or ID.", got)
}

func TestRulePageButton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := range 3 {
		_, err := f.app.Moderator.AddRule(ctx, models.RuleAutomod, models.Rule{
			Name:  fmt.Sprintf("rule-%d", i),
			Regex: fmt.Sprintf("word%d", i),
			Text:  "reason",
		})
		require.NoError(t, err)
	}

	f.h.InteractionCreate(press(moderation.PageID(models.RuleAutomod, 1), "list", member("s1", staffRole)))

	resp := f.rec.last(t)
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, resp.Type)
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "(Page 2/3)", resp.Data.Embeds[0].Footer.Text)
}

func TestUnknownButton(t *testing.T) {
	f := newFixture(t)

	f.h.InteractionCreate(press("mystery", "m1", member("u1")))

	assert.Equal(t, "This button is no longer active.", content(t, f.rec.last(t)))
}

func TestEval(t *testing.T) {
	f := newFixture(t)
	admin := member("a1", adminRole)

	f.h.InteractionCreate(slash(command.Eval, "random", admin, strOpt("sql", "SELECT 1 AS one")))
	assert.Equal(t, "```\none\n-----\n1\n```", content(t, f.rec.last(t)))

	f.h.InteractionCreate(slash(command.Eval, "random", admin, strOpt("sql", "SELEC nonsense")))
	assert.Contains(t, content(t, f.rec.last(t)), "Error: ")

	f.h.InteractionCreate(slash(command.Eval, "random", admin, strOpt("sql", "SELECT '100%d %s' AS pct")))
	got := content(t, f.rec.last(t))
	assert.Contains(t, got, "100%d %s")
	assert.NotContains(t, got, "%!")
}

func TestDocSearchOutsideThread(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.app.Store.ReplaceDocs(context.Background(), []models.DocEntry{
		{Name: "Install guide", Link: "https://docs.example.com/install"},
		{Name: "Install video", Link: "https://www.youtube.com/watch?v=abc"},
		{Name: "Backups", Link: "https://docs.example.com/backups"},
	}, "etag"))

	f.h.InteractionCreate(slash(command.DocSearch, "random", member("u1"), strOpt("query", "install")))

	resp := f.rec.last(t)
	assert.Equal(t, discordgo.MessageFlagsSuppressEmbeds, resp.Data.Flags)
	assert.Equal(t, "Please follow this guide to solve your issue: https://docs.example.com/install\n"+
		"Please follow this video tutorial to solve your issue: https://www.youtube.com/watch?v=abc\n", resp.Data.Content)

	f.h.InteractionCreate(slash(command.DocSearch, "random", member("u1"), strOpt("query", "kubernetes")))
	assert.Equal(t, "No matching documents found.", content(t, f.rec.last(t)))
}

func TestDocSearchInThreadOffersPicker(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.app.Store.ReplaceDocs(context.Background(), []models.DocEntry{
		{Name: "Install guide", Link: "https://docs.example.com/install"},
	}, "etag"))
	f.fake.AddThread("t1", "support", "owner")
	f.fake.SetThreadMembers("t1", &discordgo.ThreadMember{UserID: "owner", Member: member("owner")})

	f.h.InteractionCreate(slash(command.DocSearch, "t1", member("s1", staffRole), strOpt("query", "install")))

	resp := f.rec.last(t)
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "Select User to Ping", resp.Data.Embeds[0].Title)
	row := resp.Data.Components[0].(discordgo.ActionsRow)
	menu := row.Components[0].(discordgo.SelectMenu)
	assert.Equal(t, docPingPrefix+"install", menu.CustomID)
	require.Len(t, menu.Options, 2)
	assert.Equal(t, "owner", menu.Options[0].Value)
	assert.Equal(t, noPing, menu.Options[1].Value)
}

func TestContributorRoleAlreadyHeld(t *testing.T) {
	f := newFixture(t)

	f.h.InteractionCreate(press(getContributorRoleID, "panel", member("u1", "contributor")))

	assert.Equal(t, "You already have the contributors role!", content(t, f.rec.last(t)))
}

func TestContributorRoleStartsVerification(t *testing.T) {
	f := newFixture(t)

	f.h.InteractionCreate(press(getContributorRoleID, "panel", member("u1")))

	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, f.rec.last(t).Type)
	edit := f.rec.lastEdit(t)
	require.NotNil(t, edit.Embeds)
	require.Len(t, *edit.Embeds, 1)
	assert.Equal(t, "🔐 GitHub Verification Required", (*edit.Embeds)[0].Title)
}

func TestPageWSCloseWithoutListeners(t *testing.T) {
	f := newFixture(t)

	f.h.InteractionCreate(slash(command.PageWSClose, "random", member("s1", staffRole)))

	assert.Equal(t, "No active page websockets to close", content(t, f.rec.last(t)))
}

func TestPageNotConfigured(t *testing.T) {
	f := newFixture(t)

	f.h.InteractionCreate(slash(command.Page, "random", member("s1", staffRole),
		strOpt("title", "Down"), strOpt("description", "Everything is on fire")))

	assert.Equal(t, "This feature is not configured.", content(t, f.rec.last(t)))
}

func TestMessageCreateSendsContributorPanel(t *testing.T) {
	f := newFixture(t)
	msg := f.fake.Post("contributors", &discordgo.User{ID: "u1"}, "<@bot> role please", &discordgo.User{ID: botID})

	f.h.MessageCreate(&discordgo.MessageCreate{Message: msg})

	sent := f.fake.BotMessages("contributors")
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Embeds, 1)
	assert.Equal(t, "Get Contributor Role", sent[0].Embeds[0].Title)
}

func TestMessageCreateIgnoresBot(t *testing.T) {
	f := newFixture(t)
	msg := f.fake.Post("contributors", &discordgo.User{ID: botID, Bot: true}, "<@bot>", &discordgo.User{ID: botID})

	f.h.MessageCreate(&discordgo.MessageCreate{Message: msg})

	assert.Len(t, f.fake.BotMessages("contributors"), 1)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{lifecycle.ErrNotAuthorized, "You don't have permission to do this."},
		{fmt.Errorf("wrapped: %w", lifecycle.ErrAlreadySolved), "This post is already marked as solved."},
		{lifecycle.ErrNotSupportPost, "This command can only be used in a support post."},
		{fmt.Errorf("%w: missing )", classifier.ErrInvalidPattern), "Could not save the rule, invalid pattern: missing )"},
		{database.ErrNotFound, "No rule matches that name or ID."},
		{errors.New("boom"), genericFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, userMessage(tt.err))
	}
}

func TestChatGPT(t *testing.T) {
	f := newFixture(t)
	m := member("u1")
	m.Nick = "Sam"

	f.h.InteractionCreate(slash(command.ChatGPT, "random", m, strOpt("query", "how do I use traefik & docker?")))

	resp := f.rec.last(t)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Zero(t, resp.Data.Flags)
	link := "http://chat.com/?q=how+do+I+use+traefik+%26+docker%3F"
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "### [how do I use traefik & docker?]("+link+")", resp.Data.Embeds[0].Description)
	assert.Equal(t, "Recommended by Sam", resp.Data.Embeds[0].Footer.Text)
	button := resp.Data.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, discordgo.LinkButton, button.Style)
	assert.Equal(t, link, button.URL)
}
