package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord implements Platform on a live gateway session.
type Discord struct {
	s *discordgo.Session
}

// NewDiscord wraps a session.
func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{s: s}
}

func (d *Discord) BotID() string {
	if d.s.State == nil || d.s.State.User == nil {
		return ""
	}
	return d.s.State.User.ID
}

// Channel prefers the gateway cache and falls back to REST. Cached
// channels are returned as copies; callers may edit them freely.
func (d *Discord) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if d.s.State != nil {
		if ch, err := d.s.State.Channel(channelID); err == nil {
			d.s.State.RLock()
			defer d.s.State.RUnlock()
			return copyChannel(ch), nil
		}
	}
	ch, err := d.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "channel %s", channelID)
	}
	return ch, nil
}

func (d *Discord) Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	if d.s.State != nil {
		if m, err := d.s.State.Message(channelID, messageID); err == nil {
			d.s.State.RLock()
			defer d.s.State.RUnlock()
			c := *m
			c.Embeds = slices.Clone(m.Embeds)
			c.Components = slices.Clone(m.Components)
			return &c, nil
		}
	}
	m, err := d.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "message %s/%s", channelID, messageID)
	}
	return m, nil
}

func (d *Discord) Messages(ctx context.Context, channelID string, limit int, beforeID, afterID string) ([]*discordgo.Message, error) {
	msgs, err := d.s.ChannelMessages(channelID, limit, beforeID, afterID, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "messages in %s", channelID)
	}
	return msgs, nil
}

func (d *Discord) ActiveThreads(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	list, err := d.s.GuildThreadsActive(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "active threads in %s", guildID)
	}
	return list.Threads, nil
}

func (d *Discord) ThreadMembers(ctx context.Context, threadID string) ([]*discordgo.ThreadMember, error) {
	members, err := d.s.ThreadMembers(threadID, 100, true, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "members of %s", threadID)
	}
	return members, nil
}

// EditThread applies the edit and refreshes the cached copy so the next
// Channel call sees the new tags.
func (d *Discord) EditThread(ctx context.Context, threadID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error) {
	ch, err := d.s.ChannelEdit(threadID, edit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "edit thread %s", threadID)
	}
	if d.s.State != nil && ch.GuildID != "" {
		_ = d.s.State.ChannelAdd(ch)
	}
	return ch, nil
}

func (d *Discord) StartForumThread(ctx context.Context, forumID string, start *discordgo.ThreadStart, msg *discordgo.MessageSend) (*discordgo.Channel, error) {
	ch, err := d.s.ForumThreadStartComplex(forumID, start, msg, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "start thread in %s", forumID)
	}
	return ch, nil
}

func (d *Discord) StartThread(ctx context.Context, channelID string, start *discordgo.ThreadStart) (*discordgo.Channel, error) {
	ch, err := d.s.ThreadStartComplex(channelID, start, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "start thread in %s", channelID)
	}
	return ch, nil
}

func (d *Discord) AddThreadMember(ctx context.Context, threadID, userID string) error {
	if err := d.s.ThreadMemberAdd(threadID, userID, discordgo.WithContext(ctx)); err != nil {
		return translate(err, "add %s to thread %s", userID, threadID)
	}
	return nil
}

func (d *Discord) Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	m, err := d.s.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "send to %s", channelID)
	}
	return m, nil
}

func (d *Discord) EditMessage(ctx context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	m, err := d.s.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "edit message %s", edit.ID)
	}
	return m, nil
}

func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := d.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return translate(err, "delete message %s", messageID)
	}
	return nil
}

func (d *Discord) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time) error {
	if err := d.s.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx)); err != nil {
		return translate(err, "timeout %s", userID)
	}
	return nil
}

func (d *Discord) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := d.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return translate(err, "add role %s to %s", roleID, userID)
	}
	return nil
}

// copyChannel detaches a cached channel from the gateway state. The
// state lock must be held.
func copyChannel(ch *discordgo.Channel) *discordgo.Channel {
	c := *ch
	c.AppliedTags = slices.Clone(ch.AppliedTags)
	c.PermissionOverwrites = slices.Clone(ch.PermissionOverwrites)
	c.Messages = slices.Clone(ch.Messages)
	if ch.ThreadMetadata != nil {
		md := *ch.ThreadMetadata
		c.ThreadMetadata = &md
	}
	return &c
}

// translate maps 404 responses onto ErrNotFound.
func translate(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
