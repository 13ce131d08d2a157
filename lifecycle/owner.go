package lifecycle

import (
	"context"

	"coolbot/platform"

	"github.com/bwmarrin/discordgo"
)

// ResolveOwner finds the member a post belongs to. The opening message is
// fetched on every call. When the bot opened the post on someone's behalf,
// the first user it mentioned is the owner.
func ResolveOwner(ctx context.Context, p platform.Platform, thread *discordgo.Channel) string {
	starter, err := p.Message(ctx, thread.ID, thread.ID)
	if err != nil {
		return thread.OwnerID
	}
	return ownerFromStarter(p.BotID(), starter, thread.OwnerID)
}

// ownerFromStarter applies the owner rules to a known opening message.
func ownerFromStarter(botID string, starter *discordgo.Message, fallback string) string {
	if starter == nil || starter.Author == nil {
		return fallback
	}
	if starter.Author.ID != botID {
		return starter.Author.ID
	}
	if len(starter.Mentions) > 0 && starter.Mentions[0] != nil {
		return starter.Mentions[0].ID
	}
	return fallback
}

// resolveOwnerFromHistory is used once the opening message is gone. It
// prefers a snapshot of the deleted message, then the oldest remaining one.
func resolveOwnerFromHistory(ctx context.Context, p platform.Platform, thread *discordgo.Channel, snapshot *discordgo.Message) string {
	if snapshot != nil && snapshot.Author != nil {
		return ownerFromStarter(p.BotID(), snapshot, thread.OwnerID)
	}
	oldest, err := p.Messages(ctx, thread.ID, 1, "", "0")
	if err != nil || len(oldest) == 0 {
		return thread.OwnerID
	}
	return ownerFromStarter(p.BotID(), oldest[0], thread.OwnerID)
}
