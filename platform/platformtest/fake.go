// Package platformtest provides an in-memory platform.Platform for tests.
package platformtest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"coolbot/platform"

	"github.com/bwmarrin/discordgo"
)

// Timeout records a member timeout.
type Timeout struct {
	GuildID, UserID string
	Until           time.Time
}

// RoleGrant records a role added to a member.
type RoleGrant struct {
	GuildID, UserID, RoleID string
}

// Fake keeps channels and messages in memory and records every command.
type Fake struct {
	mu sync.Mutex

	BotUserID string
	GuildID   string

	channels map[string]*discordgo.Channel
	// messages per channel, oldest first.
	messages map[string][]*discordgo.Message
	members  map[string][]*discordgo.ThreadMember
	nextID   int

	Edits    []ThreadEdit
	Deleted  []string
	Timeouts []Timeout
	Roles    []RoleGrant
	Started  []*discordgo.Channel

	// Errors injects a failure for the named method ("EditThread", "Send", ...).
	Errors map[string]error
}

// ThreadEdit records an EditThread call.
type ThreadEdit struct {
	ThreadID string
	Edit     discordgo.ChannelEdit
}

// New returns an empty fake logged in as botID.
func New(botID string) *Fake {
	return &Fake{
		BotUserID: botID,
		GuildID:   "guild",
		channels:  map[string]*discordgo.Channel{},
		messages:  map[string][]*discordgo.Message{},
		members:   map[string][]*discordgo.ThreadMember{},
		nextID:    1000,
		Errors:    map[string]error{},
	}
}

// AddForum registers a forum channel.
func (f *Fake) AddForum(id string) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &discordgo.Channel{ID: id, GuildID: f.GuildID, Type: discordgo.ChannelTypeGuildForum}
	f.channels[id] = ch
	return ch
}

// AddText registers a text channel.
func (f *Fake) AddText(id string) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &discordgo.Channel{ID: id, GuildID: f.GuildID, Type: discordgo.ChannelTypeGuildText}
	f.channels[id] = ch
	return ch
}

// AddThread registers a forum thread owned by ownerID.
func (f *Fake) AddThread(id, parentID, ownerID string, tags ...string) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &discordgo.Channel{
		ID:             id,
		GuildID:        f.GuildID,
		ParentID:       parentID,
		OwnerID:        ownerID,
		Name:           "thread " + id,
		Type:           discordgo.ChannelTypeGuildPublicThread,
		AppliedTags:    slices.Clone(tags),
		ThreadMetadata: &discordgo.ThreadMetadata{},
	}
	f.channels[id] = ch
	return ch
}

// RemoveChannel deletes a channel, as if it was deleted while offline.
func (f *Fake) RemoveChannel(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, id)
}

// Post appends a message authored by user to a channel and returns it.
// The first message posted in a thread takes the thread's id.
func (f *Fake) Post(channelID string, author *discordgo.User, content string, mentions ...*discordgo.User) *discordgo.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	if len(f.messages[channelID]) == 0 {
		if _, ok := f.channels[channelID]; ok {
			id = channelID
		}
	}
	m := &discordgo.Message{
		ID:        id,
		ChannelID: channelID,
		GuildID:   f.GuildID,
		Author:    author,
		Content:   content,
		Mentions:  mentions,
		Timestamp: time.Now(),
	}
	f.messages[channelID] = append(f.messages[channelID], m)
	return m
}

// SetThreadMembers sets the members returned by ThreadMembers.
func (f *Fake) SetThreadMembers(threadID string, members ...*discordgo.ThreadMember) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[threadID] = members
}

// Thread returns a copy of a stored thread.
func (f *Fake) Thread(id string) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return nil
	}
	return cloneChannel(ch)
}

// ChannelMessages returns a copy of a channel's messages, oldest first.
func (f *Fake) ChannelMessages(channelID string) []*discordgo.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.messages[channelID])
}

// BotMessages returns the messages the bot sent to a channel.
func (f *Fake) BotMessages(channelID string) []*discordgo.Message {
	var out []*discordgo.Message
	for _, m := range f.ChannelMessages(channelID) {
		if m.Author != nil && m.Author.ID == f.BotUserID {
			out = append(out, m)
		}
	}
	return out
}

func (f *Fake) newID() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *Fake) fail(method string) error {
	if err, ok := f.Errors[method]; ok {
		return err
	}
	return nil
}

func (f *Fake) BotID() string { return f.BotUserID }

func (f *Fake) Channel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Channel"); err != nil {
		return nil, err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	return cloneChannel(ch), nil
}

func (f *Fake) Message(_ context.Context, channelID, messageID string) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Message"); err != nil {
		return nil, err
	}
	for _, m := range f.messages[channelID] {
		if m.ID == messageID {
			return m, nil
		}
	}
	return nil, fmt.Errorf("message %s: %w", messageID, platform.ErrNotFound)
}

func (f *Fake) Messages(_ context.Context, channelID string, limit int, beforeID, afterID string) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Messages"); err != nil {
		return nil, err
	}
	if _, ok := f.channels[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	msgs := f.messages[channelID]
	var out []*discordgo.Message
	if afterID != "" {
		// Oldest messages after the cursor, returned newest first.
		for _, m := range msgs {
			if afterID != "0" && !idAfter(m.ID, afterID) {
				continue
			}
			out = append(out, m)
			if len(out) == limit {
				break
			}
		}
		slices.Reverse(out)
		return out, nil
	}
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		if beforeID != "" && !idAfter(beforeID, msgs[i].ID) {
			continue
		}
		out = append(out, msgs[i])
	}
	return out, nil
}

func idAfter(a, b string) bool {
	ai, _ := strconv.ParseInt(a, 10, 64)
	bi, _ := strconv.ParseInt(b, 10, 64)
	return ai > bi
}

func (f *Fake) ActiveThreads(_ context.Context, guildID string) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ActiveThreads"); err != nil {
		return nil, err
	}
	var out []*discordgo.Channel
	for _, ch := range f.channels {
		if ch.ThreadMetadata == nil || ch.GuildID != guildID || ch.ThreadMetadata.Archived {
			continue
		}
		out = append(out, cloneChannel(ch))
	}
	slices.SortFunc(out, func(a, b *discordgo.Channel) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (f *Fake) ThreadMembers(_ context.Context, threadID string) ([]*discordgo.ThreadMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ThreadMembers"); err != nil {
		return nil, err
	}
	return slices.Clone(f.members[threadID]), nil
}

func (f *Fake) EditThread(_ context.Context, threadID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("EditThread"); err != nil {
		return nil, err
	}
	ch, ok := f.channels[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, platform.ErrNotFound)
	}
	f.Edits = append(f.Edits, ThreadEdit{ThreadID: threadID, Edit: *edit})
	if edit.AppliedTags != nil {
		ch.AppliedTags = slices.Clone(*edit.AppliedTags)
	}
	if ch.ThreadMetadata == nil {
		ch.ThreadMetadata = &discordgo.ThreadMetadata{}
	}
	if edit.Locked != nil {
		ch.ThreadMetadata.Locked = *edit.Locked
	}
	if edit.Archived != nil {
		ch.ThreadMetadata.Archived = *edit.Archived
	}
	if edit.Name != "" {
		ch.Name = edit.Name
	}
	return cloneChannel(ch), nil
}

func (f *Fake) StartForumThread(_ context.Context, forumID string, start *discordgo.ThreadStart, msg *discordgo.MessageSend) (*discordgo.Channel, error) {
	f.mu.Lock()
	if err := f.fail("StartForumThread"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if _, ok := f.channels[forumID]; !ok {
		f.mu.Unlock()
		return nil, fmt.Errorf("forum %s: %w", forumID, platform.ErrNotFound)
	}
	id := f.newID()
	ch := &discordgo.Channel{
		ID:             id,
		GuildID:        f.GuildID,
		ParentID:       forumID,
		OwnerID:        f.BotUserID,
		Name:           start.Name,
		Type:           discordgo.ChannelTypeGuildPublicThread,
		AppliedTags:    slices.Clone(start.AppliedTags),
		ThreadMetadata: &discordgo.ThreadMetadata{},
	}
	f.channels[id] = ch
	f.Started = append(f.Started, cloneChannel(ch))
	f.mu.Unlock()

	if _, err := f.Send(context.Background(), id, msg); err != nil {
		return nil, err
	}
	return f.Thread(id), nil
}

func (f *Fake) StartThread(_ context.Context, channelID string, start *discordgo.ThreadStart) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("StartThread"); err != nil {
		return nil, err
	}
	if _, ok := f.channels[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	ch := &discordgo.Channel{
		ID:       f.newID(),
		GuildID:  f.GuildID,
		ParentID: channelID,
		OwnerID:  f.BotUserID,
		Name:     start.Name,
		Type:     start.Type,
		ThreadMetadata: &discordgo.ThreadMetadata{
			AutoArchiveDuration: start.AutoArchiveDuration,
			Invitable:           start.Invitable,
		},
	}
	f.channels[ch.ID] = ch
	f.Started = append(f.Started, cloneChannel(ch))
	return cloneChannel(ch), nil
}

func (f *Fake) AddThreadMember(_ context.Context, threadID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AddThreadMember"); err != nil {
		return err
	}
	if _, ok := f.channels[threadID]; !ok {
		return fmt.Errorf("thread %s: %w", threadID, platform.ErrNotFound)
	}
	f.members[threadID] = append(f.members[threadID], &discordgo.ThreadMember{ID: threadID, UserID: userID})
	return nil
}

func (f *Fake) Send(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Send"); err != nil {
		return nil, err
	}
	if _, ok := f.channels[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	id := f.newID()
	if len(f.messages[channelID]) == 0 {
		id = channelID
	}
	m := &discordgo.Message{
		ID:         id,
		ChannelID:  channelID,
		GuildID:    f.GuildID,
		Author:     &discordgo.User{ID: f.BotUserID, Bot: true},
		Content:    msg.Content,
		Embeds:     msg.Embeds,
		Components: msg.Components,
		Timestamp:  time.Now(),
	}
	f.messages[channelID] = append(f.messages[channelID], m)
	return m, nil
}

func (f *Fake) EditMessage(_ context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("EditMessage"); err != nil {
		return nil, err
	}
	for _, m := range f.messages[edit.Channel] {
		if m.ID != edit.ID {
			continue
		}
		if edit.Content != nil {
			m.Content = *edit.Content
		}
		if edit.Embeds != nil {
			m.Embeds = *edit.Embeds
		}
		if edit.Components != nil {
			m.Components = *edit.Components
		}
		return m, nil
	}
	return nil, fmt.Errorf("message %s: %w", edit.ID, platform.ErrNotFound)
}

func (f *Fake) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteMessage"); err != nil {
		return err
	}
	msgs := f.messages[channelID]
	for i, m := range msgs {
		if m.ID == messageID {
			f.messages[channelID] = append(msgs[:i:i], msgs[i+1:]...)
			f.Deleted = append(f.Deleted, messageID)
			return nil
		}
	}
	return fmt.Errorf("message %s: %w", messageID, platform.ErrNotFound)
}

func (f *Fake) TimeoutMember(_ context.Context, guildID, userID string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("TimeoutMember"); err != nil {
		return err
	}
	f.Timeouts = append(f.Timeouts, Timeout{GuildID: guildID, UserID: userID, Until: until})
	return nil
}

func (f *Fake) AddRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AddRole"); err != nil {
		return err
	}
	f.Roles = append(f.Roles, RoleGrant{GuildID: guildID, UserID: userID, RoleID: roleID})
	return nil
}

func cloneChannel(ch *discordgo.Channel) *discordgo.Channel {
	c := *ch
	c.AppliedTags = slices.Clone(ch.AppliedTags)
	if ch.ThreadMetadata != nil {
		md := *ch.ThreadMetadata
		c.ThreadMetadata = &md
	}
	return &c
}

var _ platform.Platform = (*Fake)(nil)
