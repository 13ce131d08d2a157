package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"coolbot/models"
	"coolbot/utils"
	"coolbot/views"

	"github.com/bwmarrin/discordgo"
)

const colorDevReview = 0x9c7eff

// DevInfoField is one question of the dev review form.
type DevInfoField struct {
	ID          string
	Label       string
	Placeholder string
	Long        bool
}

// DevInfoFields are asked in this order.
var DevInfoFields = []DevInfoField{
	{ID: "email", Label: "Email", Placeholder: "Enter your Coolify cloud account email"},
	{ID: "issue_start", Label: "When did this issue Started?", Placeholder: "Example: Feb 29th at 5:22pm GMT+1"},
	{ID: "apps_accessible", Label: "Are your deployed apps accessible?", Placeholder: "Example: Yes"},
	{ID: "urgency", Label: "How soon do you need a fix?", Placeholder: "Example: Tomorrow is okay."},
	{ID: "actions", Label: "What actions led to this issue?", Placeholder: "Example: I changed the proxy labels for Traefik.", Long: true},
}

// DevInfo holds the answers keyed by DevInfoField.ID.
type DevInfo map[string]string

func jumpURL(guildID, channelID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s", guildID, channelID)
}

func displayName(m *discordgo.Member) string {
	if m == nil {
		return "unknown"
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User != nil {
		if m.User.GlobalName != "" {
			return m.User.GlobalName
		}
		return m.User.Username
	}
	return "unknown"
}

func devReviewAlert(thread *discordgo.Channel, cloud bool, info DevInfo, footer string) *discordgo.MessageEmbed {
	userType := "Self Host User"
	if cloud {
		userType = "Coolify Cloud User"
	}
	lines := []string{
		"**__Basic Information__**",
		"- Link to the post",
		"  - " + jumpURL(thread.GuildID, thread.ID),
		"- User Type",
		"  - " + userType,
		"** **",
	}
	if len(info) > 0 {
		lines = append(lines, "**__Information from User__**")
		for _, f := range DevInfoFields {
			v := strings.TrimSpace(info[f.ID])
			if v == "" {
				continue
			}
			lines = append(lines, "- "+f.Label, "  - "+v)
		}
	}
	return &discordgo.MessageEmbed{
		Description: strings.Join(lines, "\n"),
		Color:       colorDevReview,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
}

// checkEscalation loads a support post that staff may escalate.
func (m *Manager) checkEscalation(ctx context.Context, threadID string, actor *discordgo.Member) (*discordgo.Channel, error) {
	if !m.auth.IsAuthorized(actor) {
		return nil, ErrNotAuthorized
	}
	thread, err := m.SupportThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if m.tags.NeedsDevReview(thread.AppliedTags) {
		return nil, ErrAlreadyEscalated
	}
	return thread, nil
}

// EscalateDevReview tags a post for developer review and alerts the team
// right away.
func (m *Manager) EscalateDevReview(ctx context.Context, threadID string, actor *discordgo.Member) error {
	thread, err := m.checkEscalation(ctx, threadID, actor)
	if err != nil {
		return err
	}
	return m.alertTeam(ctx, thread, actor, nil, "Invoked by "+displayName(actor))
}

// RequestDevInfo asks userID to fill in the dev review form before the team
// is alerted.
func (m *Manager) RequestDevInfo(ctx context.Context, threadID string, actor *discordgo.Member, userID string) (*discordgo.Message, error) {
	thread, err := m.checkEscalation(ctx, threadID, actor)
	if err != nil {
		return nil, err
	}
	sent, err := m.p.Send(ctx, thread.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Hey %s!", mention(userID)),
		Embeds: []*discordgo.MessageEmbed{{
			Description: fmt.Sprintf("%s needs more details before escalating this post to the core team.\n\nPlease click the button below.", mention(actorID(actor))),
			Color:       colorBlue,
		}},
		Components: views.SubmitInfoComponents(),
	})
	if err != nil {
		return nil, fmt.Errorf("send dev info request: %w", err)
	}
	m.attach(ctx, views.Control{
		Kind:      models.ViewSubmitInfo,
		MessageID: sent.ID,
		ChannelID: thread.ParentID,
		ThreadID:  thread.ID,
		OwnerID:   userID,
		Persisted: true,
	})
	m.count(ctx, "dev_info_requested")
	return sent, nil
}

// SubmitDevInfo handles the answers of the dev review form. Only the user
// the form was requested from may submit it.
func (m *Manager) SubmitDevInfo(ctx context.Context, c views.Control, actor *discordgo.Member, info DevInfo) error {
	if actorID(actor) != c.OwnerID {
		return ErrNotAuthorized
	}
	thread, err := m.Thread(ctx, c.ThreadID)
	if err != nil {
		return err
	}
	if err := m.alertTeam(ctx, thread, actor, info, "Submitted by "+displayName(actor)); err != nil {
		return err
	}
	m.registry.Unregister(c.MessageID)
	if err := m.store.RemoveView(ctx, c.MessageID); err != nil {
		utils.Warn("Lifecycle", "RemoveView", err.Error())
	}
	if err := m.p.DeleteMessage(ctx, c.ThreadID, c.MessageID); err != nil {
		utils.Warn("Lifecycle", "SubmitDevInfo", fmt.Sprintf("delete request %s: %v", c.MessageID, err))
	}
	return nil
}

func (m *Manager) alertTeam(ctx context.Context, thread *discordgo.Channel, actor *discordgo.Member, info DevInfo, footer string) error {
	if m.teamChannel == "" {
		return fmt.Errorf("team channel: %w", ErrNotConfigured)
	}
	cloud := m.tags.HasCloud(thread.AppliedTags)
	if err := m.applyTags(ctx, thread, m.tags.DevReview(thread.AppliedTags)); err != nil {
		return err
	}

	content := "A support post needs your attention!"
	if m.teamRole != "" {
		content = fmt.Sprintf("Hey <@&%s> a support post needs your attention!", m.teamRole)
	}
	if _, err := m.p.Send(ctx, m.teamChannel, &discordgo.MessageSend{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{devReviewAlert(thread, cloud, info, footer)},
	}); err != nil {
		return fmt.Errorf("alert team: %w", err)
	}

	who := "A staff member"
	if len(info) == 0 {
		who = mention(actorID(actor))
	}
	if _, err := m.p.Send(ctx, thread.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Description: who + " has escalated this post for review by the core team.\n\n" +
				"A team member will assist you as soon as possible.\n\n" +
				"You will be pinged once you receive a response and please avoid pinging anyone in the meantime.",
			Color: colorGreen,
		}},
	}); err != nil {
		utils.Warn("Lifecycle", "DevReview", fmt.Sprintf("notice in %s: %v", thread.ID, err))
	}
	m.count(ctx, "dev_review")
	return nil
}

const movedNote = "This post has been moved here to the Community support channel as it doesn’t fall within the scope of the Support channel.\n\n" + guidanceText

// MoveToCommunity recreates a support post in the community forum and
// closes the original with a pointer to the copy.
func (m *Manager) MoveToCommunity(ctx context.Context, threadID string, actor *discordgo.Member) (*discordgo.Channel, error) {
	thread, err := m.SupportThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	owner := ResolveOwner(ctx, m.p, thread)
	if !m.canDrive(actor, owner) {
		return nil, ErrNotAuthorized
	}
	if m.community == "" {
		return nil, fmt.Errorf("community forum: %w", ErrNotConfigured)
	}

	var parts []string
	attachments := 0
	if history, err := m.p.Messages(ctx, thread.ID, 100, "", "0"); err == nil {
		for i := len(history) - 1; i >= 0; i-- {
			msg := history[i]
			if msg.Author == nil || msg.Author.Bot {
				continue
			}
			if c := strings.TrimSpace(msg.Content); c != "" {
				parts = append(parts, c)
			}
			attachments += len(msg.Attachments)
		}
	}

	initial := mention(owner) + " needs assistance from the Community!"
	if len(parts) > 0 {
		initial += "\n\n__**Original Message:**__\n" + strings.Join(parts, "\n\n")
	}
	if attachments > 0 {
		initial += fmt.Sprintf("\n\nThe original post had %d attachment(s): %s", attachments, jumpURL(thread.GuildID, thread.ID))
	}
	initial += "\n\n-# This post is moved by " + mention(actorID(actor))
	initial = utils.Truncate(initial, 2000)

	title := thread.Name
	if title == "" {
		title = "Support request"
	}
	moved, err := m.p.StartForumThread(ctx, m.community, &discordgo.ThreadStart{Name: title}, &discordgo.MessageSend{Content: initial})
	if err != nil {
		return nil, fmt.Errorf("create community post: %w", err)
	}
	if _, err := m.p.Send(ctx, moved.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{Title: "Note", Description: movedNote}},
	}); err != nil {
		utils.Warn("Lifecycle", "MoveToCommunity", fmt.Sprintf("note in %s: %v", moved.ID, err))
	}

	if err := m.closer.Cancel(ctx, thread.ID); err != nil {
		utils.Warn("Lifecycle", "MoveToCommunity", err.Error())
	}
	if err := m.applyTags(ctx, thread, m.tags.Solve(thread.AppliedTags)); err != nil {
		utils.Warn("Lifecycle", "MoveToCommunity", err.Error())
	}
	if _, err := m.p.Send(ctx, thread.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Hey %s, your support post has been moved to Community support channel. Please continue on: %s",
			mention(owner), jumpURL(moved.GuildID, moved.ID)),
	}); err != nil {
		utils.Warn("Lifecycle", "MoveToCommunity", err.Error())
	}

	name := "[ Moved to Community ] " + thread.Name
	name = utils.Cut(name, 100)
	locked, archived := true, true
	if _, err := m.p.EditThread(ctx, thread.ID, &discordgo.ChannelEdit{Name: name, Locked: &locked, Archived: &archived}); err != nil {
		return moved, fmt.Errorf("close moved post: %w", err)
	}
	m.forget(ctx, thread.ID)
	m.count(ctx, "moved")
	return moved, nil
}
