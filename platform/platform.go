// Package platform is the bot's view of Discord: the reads and writes the
// lifecycle, moderation and sync code need, behind an interface so that
// they can run against an in-memory fake.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrNotFound is returned when a channel, thread, message or member no
// longer exists.
var ErrNotFound = errors.New("not found")

// Platform issues commands against the chat platform.
type Platform interface {
	// BotID is the user id the bot is logged in as.
	BotID() string

	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	// Messages returns up to limit messages, newest first.
	Messages(ctx context.Context, channelID string, limit int, beforeID, afterID string) ([]*discordgo.Message, error)
	ActiveThreads(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	ThreadMembers(ctx context.Context, threadID string) ([]*discordgo.ThreadMember, error)

	EditThread(ctx context.Context, threadID string, edit *discordgo.ChannelEdit) (*discordgo.Channel, error)
	StartForumThread(ctx context.Context, forumID string, start *discordgo.ThreadStart, msg *discordgo.MessageSend) (*discordgo.Channel, error)
	// StartThread opens a thread without a starter message, e.g. a private
	// thread in a text channel.
	StartThread(ctx context.Context, channelID string, start *discordgo.ThreadStart) (*discordgo.Channel, error)
	AddThreadMember(ctx context.Context, threadID, userID string) error
	Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	EditMessage(ctx context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	TimeoutMember(ctx context.Context, guildID, userID string, until time.Time) error
	AddRole(ctx context.Context, guildID, userID, roleID string) error
}

// IsThreadOpen reports whether a thread is neither locked nor archived.
func IsThreadOpen(ch *discordgo.Channel) bool {
	if ch == nil {
		return false
	}
	if ch.ThreadMetadata == nil {
		return true
	}
	return !ch.ThreadMetadata.Locked && !ch.ThreadMetadata.Archived
}
