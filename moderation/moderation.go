// Package moderation runs the admin-managed regex rules against incoming
// messages: auto-responses and auto-moderation.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coolbot/classifier"
	"coolbot/models"
	"coolbot/platform"
	"coolbot/telemetry"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// UserMentionPlaceholder is replaced with the author's mention in responses.
const UserMentionPlaceholder = "${usermention}"

const (
	timeoutDuration = 12 * time.Hour
	purgeWindow     = 5 * time.Minute
	purgeScan       = 100
)

// RuleStore persists both rule kinds.
type RuleStore interface {
	AddRule(ctx context.Context, kind models.RuleKind, r models.Rule) (int64, error)
	SeedRule(ctx context.Context, kind models.RuleKind, r models.Rule) (bool, error)
	Rules(ctx context.Context, kind models.RuleKind) ([]models.Rule, error)
	DeleteRule(ctx context.Context, kind models.RuleKind, identifier string) (models.Rule, error)
}

// Options configures a Moderator.
type Options struct {
	Platform      platform.Platform
	Rules         RuleStore
	Auth          *utils.Auth
	GuildID       string
	ReportChannel string
	ReportRole    string
	Now           func() time.Time
}

// Moderator applies auto-responses and automod rules.
type Moderator struct {
	p             platform.Platform
	rules         RuleStore
	auth          *utils.Auth
	guildID       string
	reportChannel string
	reportRole    string
	now           func() time.Time
	hits          metric.Int64Counter
}

// New creates a Moderator.
func New(opts Options) *Moderator {
	m := &Moderator{
		p:             opts.Platform,
		rules:         opts.Rules,
		auth:          opts.Auth,
		guildID:       opts.GuildID,
		reportChannel: opts.ReportChannel,
		reportRole:    opts.ReportRole,
		now:           opts.Now,
		hits:          telemetry.Counter("coolbot/moderation", "moderation.rule_hits", "Messages matched by a rule"),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.auth == nil {
		m.auth = utils.NewAuth(models.RoleConfig{})
	}
	return m
}

// HandleMessage runs both rule sets against a message. Messages from the
// bot and from staff are ignored.
func (m *Moderator) HandleMessage(ctx context.Context, msg *discordgo.Message, member *discordgo.Member) error {
	if msg.Author == nil || msg.Author.Bot || msg.Author.ID == m.p.BotID() {
		return nil
	}
	if m.auth.IsAuthorized(member) {
		return nil
	}
	_, respondErr := m.AutoRespond(ctx, msg)
	_, modErr := m.Automod(ctx, msg, member)
	return errors.Join(respondErr, modErr)
}

// AutoRespond replies with the first matching auto-response.
func (m *Moderator) AutoRespond(ctx context.Context, msg *discordgo.Message) (bool, error) {
	rules, err := m.rules.Rules(ctx, models.RuleAutoResponse)
	if err != nil {
		return false, err
	}
	rule, ok := classifier.Match(rules, msg.Content)
	if !ok {
		return false, nil
	}
	reply := strings.ReplaceAll(rule.Text, UserMentionPlaceholder, msg.Author.Mention())
	if _, err := m.p.Send(ctx, msg.ChannelID, &discordgo.MessageSend{
		Content:   reply,
		Reference: msg.Reference(),
	}); err != nil {
		return true, fmt.Errorf("autoresponse %q: %w", rule.Name, err)
	}
	m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(models.RuleAutoResponse))))
	return true, nil
}

// Automod applies the first matching automod rule: the author is timed out,
// the channel is told, the report channel gets the details and the author's
// recent messages are removed.
func (m *Moderator) Automod(ctx context.Context, msg *discordgo.Message, member *discordgo.Member) (bool, error) {
	rules, err := m.rules.Rules(ctx, models.RuleAutomod)
	if err != nil {
		return false, err
	}
	rule, ok := classifier.Match(rules, msg.Content)
	if !ok {
		return false, nil
	}
	m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(models.RuleAutomod))))

	var errs []error
	if member != nil {
		if err := m.p.TimeoutMember(ctx, m.guildID, msg.Author.ID, m.now().Add(timeoutDuration)); err != nil {
			errs = append(errs, fmt.Errorf("timeout %s: %w", msg.Author.ID, err))
		}
	}

	if _, err := m.p.Send(ctx, msg.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Description: fmt.Sprintf("%s muted\n> Reason: %s\n> Duration: 12 hours", msg.Author.Mention(), rule.Text),
			Color:       utils.ColorInfo,
		}},
	}); err != nil {
		errs = append(errs, fmt.Errorf("automod notice: %w", err))
	}

	if m.reportChannel != "" {
		if _, err := m.p.Send(ctx, m.reportChannel, reportMessage(msg, rule, m.reportRole)); err != nil {
			errs = append(errs, fmt.Errorf("automod report: %w", err))
		}
	}

	if err := m.purgeRecent(ctx, msg.ChannelID, msg.Author.ID); err != nil {
		errs = append(errs, err)
	}
	return true, errors.Join(errs...)
}

func reportMessage(msg *discordgo.Message, rule models.Rule, pingRole string) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title: "Automoderation Triggered",
			Color: utils.ColorInfo,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "User", Value: fmt.Sprintf(" - %s (`%s`)", msg.Author.Mention(), msg.Author.ID), Inline: true},
				{Name: "Channel", Value: fmt.Sprintf(" - <#%s>", msg.ChannelID)},
				{Name: "Rule", Value: fenced(rule.Name)},
				{Name: "Reason", Value: fenced(rule.Text)},
				{Name: "Message", Value: fenced(msg.Content)},
			},
		}},
	}
	if pingRole != "" {
		send.Content = fmt.Sprintf("<@&%s>", pingRole)
	}
	return send
}

// maxFieldValue is the embed field value limit, counted in characters.
const maxFieldValue = 1024

// fenced wraps s in a code block that fits an embed field, cutting s on a
// character boundary.
func fenced(s string) string {
	const fence = "```\n"
	return fence + utils.Cut(s, maxFieldValue-2*len(fence)) + "\n```"
}

// purgeRecent deletes the author's messages from the last few minutes,
// scanning a bounded window of recent history.
func (m *Moderator) purgeRecent(ctx context.Context, channelID, authorID string) error {
	recent, err := m.p.Messages(ctx, channelID, purgeScan, "", "")
	if err != nil {
		return fmt.Errorf("scan recent messages: %w", err)
	}
	cutoff := m.now().Add(-purgeWindow)
	var errs []error
	for _, msg := range recent {
		if msg.Author == nil || msg.Author.ID != authorID || msg.Timestamp.Before(cutoff) {
			continue
		}
		if err := m.p.DeleteMessage(ctx, channelID, msg.ID); err != nil && !errors.Is(err, platform.ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete %s: %w", msg.ID, err))
		}
	}
	return errors.Join(errs...)
}
