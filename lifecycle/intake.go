package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

// IntakeTarget is the forum a chat message is turned into a post in.
type IntakeTarget string

const (
	IntakeSupport   IntakeTarget = "support"
	IntakeCommunity IntakeTarget = "community"
)

// IntakeButtonPrefix starts the custom id of the forum choice buttons.
const IntakeButtonPrefix = "intake"

// IntakeButtonID encodes the forum choice for a staff reply (triggerID) to
// the member's message (sourceID).
func IntakeButtonID(target IntakeTarget, triggerID, sourceID string) string {
	return strings.Join([]string{IntakeButtonPrefix, string(target), triggerID, sourceID}, ":")
}

// ParseIntakeButtonID decodes a forum choice button custom id.
func ParseIntakeButtonID(customID string) (target IntakeTarget, triggerID, sourceID string, ok bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 4 || parts[0] != IntakeButtonPrefix {
		return "", "", "", false
	}
	target = IntakeTarget(parts[1])
	if target != IntakeSupport && target != IntakeCommunity {
		return "", "", "", false
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", "", false
	}
	return target, parts[2], parts[3], true
}

func intakeComponents(triggerID, sourceID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Support Channel", Style: discordgo.PrimaryButton, CustomID: IntakeButtonID(IntakeSupport, triggerID, sourceID)},
			discordgo.Button{Label: "Community Support Channel", Style: discordgo.SecondaryButton, CustomID: IntakeButtonID(IntakeCommunity, triggerID, sourceID)},
		}},
	}
}

func mentions(msg *discordgo.Message, userID string) bool {
	return slices.ContainsFunc(msg.Mentions, func(u *discordgo.User) bool { return u != nil && u.ID == userID })
}

// OfferIntake answers a staff reply in the general channel that mentions
// the bot with the forum choice buttons. The same ping from anyone else is
// deleted. It reports whether msg was such a ping.
func (m *Manager) OfferIntake(ctx context.Context, msg *discordgo.Message, member *discordgo.Member) (bool, error) {
	if m.general == "" || msg.ChannelID != m.general || msg.MessageReference == nil {
		return false, nil
	}
	if msg.Author == nil || msg.Author.Bot || !mentions(msg, m.p.BotID()) {
		return false, nil
	}
	if !m.auth.IsAuthorized(member) {
		if err := m.p.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			utils.Warn("Lifecycle", "OfferIntake", fmt.Sprintf("delete ping %s: %v", msg.ID, err))
		}
		return true, nil
	}
	_, err := m.p.Send(ctx, msg.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{{Description: "Which channel would you like to move this message to?"}},
		Components: intakeComponents(msg.ID, msg.MessageReference.MessageID),
		Reference:  msg.Reference(),
	})
	return true, err
}

// IntakeRequest identifies a chat message to turn into a forum post.
type IntakeRequest struct {
	ChannelID string
	// PromptID is the bot message carrying the forum choice.
	PromptID  string
	TriggerID string
	SourceID  string
	Target    IntakeTarget
	Actor     *discordgo.Member
}

// CreatePostFromMessage opens a forum post for the author of the source
// message. The source message and the author's follow-ups up to the staff
// reply are copied into the post and deleted from the channel.
func (m *Manager) CreatePostFromMessage(ctx context.Context, req IntakeRequest) (*discordgo.Channel, error) {
	if !m.auth.IsAuthorized(req.Actor) {
		return nil, ErrNotAuthorized
	}
	forum, assistance := m.supportForum, "needs assistance with Coolify"
	if req.Target == IntakeCommunity {
		forum, assistance = m.community, "needs assistance from the Community"
	}
	if forum == "" {
		return nil, fmt.Errorf("%s forum: %w", req.Target, ErrNotConfigured)
	}
	if req.PromptID != "" {
		if err := m.p.DeleteMessage(ctx, req.ChannelID, req.PromptID); err != nil {
			utils.Warn("Lifecycle", "CreatePost", fmt.Sprintf("delete prompt %s: %v", req.PromptID, err))
		}
	}

	source, err := m.p.Message(ctx, req.ChannelID, req.SourceID)
	if err != nil {
		return nil, fmt.Errorf("fetch source message: %w", err)
	}
	if source.Author == nil {
		return nil, fmt.Errorf("source message %s has no author", source.ID)
	}
	msgs := []*discordgo.Message{source}
	if later, err := m.p.Messages(ctx, req.ChannelID, 100, "", source.ID); err == nil {
		for i := len(later) - 1; i >= 0; i-- {
			if later[i].ID == req.TriggerID {
				break
			}
			if later[i].Author != nil && later[i].Author.ID == source.Author.ID {
				msgs = append(msgs, later[i])
			}
		}
	}

	var parts []string
	attachments := 0
	for _, msg := range msgs {
		if c := strings.TrimSpace(msg.Content); c != "" {
			parts = append(parts, c)
		}
		attachments += len(msg.Attachments)
	}
	content := strings.Join(parts, "\n\n")

	initial := fmt.Sprintf("%s %s!", mention(source.Author.ID), assistance)
	if content != "" {
		initial += "\n\n__**Original Message:**__\n" + content
	}
	if attachments > 0 {
		initial += fmt.Sprintf("\n\nThe original message had **%d** attachment(s).", attachments)
	}
	initial = utils.Truncate(initial, 2000)

	post, err := m.p.StartForumThread(ctx, forum, &discordgo.ThreadStart{Name: intakeTitle(msgs[0].Content, source.Author)}, &discordgo.MessageSend{
		Content: initial,
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	if _, err := m.p.Send(ctx, post.ID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{guidanceEmbed()}}); err != nil {
		utils.Warn("Lifecycle", "CreatePost", fmt.Sprintf("note in %s: %v", post.ID, err))
	}

	link := jumpURL(post.GuildID, post.ID)
	if _, err := m.p.Send(ctx, req.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Hey %s! We’ve moved your message to the support channel so it’s easier for everyone to assist. You can continue the conversation here: %s\n"+
			"-# Friendly reminder: Using the support channels for questions (even quick yes/no ones) helps us get you answers faster and keeps things organized!",
			mention(source.Author.ID), link),
	}); err != nil {
		utils.Warn("Lifecycle", "CreatePost", err.Error())
	}
	if m.postLog != "" {
		if _, err := m.p.Send(ctx, m.postLog, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{{
				Title: "Post moved successfully.",
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Owner", Value: mention(source.Author.ID)},
					{Name: "Moved by", Value: mention(actorID(req.Actor))},
					{Name: "Characters", Value: fmt.Sprint(len(content))},
					{Name: "Attachments", Value: fmt.Sprintf("%d files", attachments)},
					{Name: "Location", Value: link},
				},
			}},
		}); err != nil {
			utils.Warn("Lifecycle", "CreatePost", fmt.Sprintf("post log: %v", err))
		}
	}

	for _, msg := range append(msgs, &discordgo.Message{ID: req.TriggerID}) {
		if err := m.p.DeleteMessage(ctx, req.ChannelID, msg.ID); err != nil {
			utils.Warn("Lifecycle", "CreatePost", fmt.Sprintf("delete %s: %v", msg.ID, err))
		}
	}
	m.count(ctx, "intake")
	return post, nil
}

func intakeTitle(content string, author *discordgo.User) string {
	title := strings.TrimSpace(content)
	if title == "" {
		title = "Support request from " + author.Username
	}
	title = strings.TrimSpace(utils.Cut(title, 100))
	if title == "" {
		return "Support Request"
	}
	return title
}
