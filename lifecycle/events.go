package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"coolbot/models"
	"coolbot/platform"
	"coolbot/utils"
	"coolbot/views"

	"github.com/bwmarrin/discordgo"
)

// HandleStarterDeleted reacts to the opening message of a support post
// being deleted. The owner is asked whether the post is solved; without an
// answer the post closes after StarterDeletedDelay. The countdown is not
// persisted.
func (m *Manager) HandleStarterDeleted(ctx context.Context, channelID, messageID string, snapshot *discordgo.Message) error {
	if channelID != messageID {
		return nil
	}
	thread, err := m.SupportThread(ctx, channelID)
	if err != nil {
		if errors.Is(err, ErrNotThread) || errors.Is(err, ErrNotSupportPost) || errors.Is(err, platform.ErrNotFound) {
			return nil
		}
		return err
	}
	if !platform.IsThreadOpen(thread) || m.tags.IsSolved(thread.AppliedTags) {
		return nil
	}

	owner := resolveOwnerFromHistory(ctx, m.p, thread, snapshot)
	sent, err := m.p.Send(ctx, thread.ID, &discordgo.MessageSend{
		Content:    fmt.Sprintf("Hey %s !", mention(owner)),
		Embeds:     []*discordgo.MessageEmbed{starterDeletedEmbed(m.now().Add(StarterDeletedDelay))},
		Components: views.ConfirmCloseComponents(),
	})
	if err != nil {
		return fmt.Errorf("send close prompt: %w", err)
	}
	m.attach(ctx, views.Control{
		Kind:      models.ViewConfirmClose,
		MessageID: sent.ID,
		ChannelID: thread.ParentID,
		ThreadID:  thread.ID,
		OwnerID:   owner,
		Persisted: true,
	})
	m.closer.Countdown(thread.ID, StarterDeletedDelay, models.CloseStarterDeleted)
	m.count(ctx, "starter_deleted")
	return nil
}

// ConfirmClose handles the confirm button of a close prompt. The bound owner
// and staff may press it.
func (m *Manager) ConfirmClose(ctx context.Context, c views.Control, actor *discordgo.Member) error {
	if !m.canDrive(actor, c.OwnerID) {
		return ErrNotAuthorized
	}
	m.retire(ctx, c.ThreadID, c.MessageID, fmt.Sprintf("%s said this post is solved.", mention(actorID(actor))))
	if err := m.closer.Cancel(ctx, c.ThreadID); err != nil {
		utils.Warn("Lifecycle", "ConfirmClose", err.Error())
	}
	thread, err := m.p.Channel(ctx, c.ThreadID)
	if err != nil {
		return err
	}
	if !platform.IsThreadOpen(thread) {
		m.forget(ctx, thread.ID)
		return nil
	}
	return m.close(ctx, thread, nil, "confirmed")
}

// CancelConfirm handles the cancel button of a close prompt. The post stays
// open.
func (m *Manager) CancelConfirm(ctx context.Context, c views.Control, actor *discordgo.Member) error {
	if !m.canDrive(actor, c.OwnerID) {
		return ErrNotAuthorized
	}
	m.retire(ctx, c.ThreadID, c.MessageID,
		fmt.Sprintf("%s said this post is not solved, so we will keep it open.", mention(actorID(actor))))
	if err := m.closer.Cancel(ctx, c.ThreadID); err != nil {
		return err
	}
	m.count(ctx, "close_cancelled")
	return nil
}

// HandleMemberLeave schedules every open support post of a departed member
// to close. It returns how many posts were scheduled.
func (m *Manager) HandleMemberLeave(ctx context.Context, guildID, userID string) (int, error) {
	threads, err := m.p.ActiveThreads(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("list active threads: %w", err)
	}
	scheduled := 0
	for _, thread := range threads {
		if thread.ParentID != m.supportForum || !platform.IsThreadOpen(thread) {
			continue
		}
		owner := thread.OwnerID
		if owner == m.p.BotID() {
			owner = ResolveOwner(ctx, m.p, thread)
		}
		if owner != userID {
			continue
		}
		if _, err := m.p.Send(ctx, thread.ID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{ownerLeftEmbed(userID, m.now().Add(OwnerLeftDelay))},
		}); err != nil {
			utils.Warn("Lifecycle", "MemberLeave", fmt.Sprintf("notice in %s: %v", thread.ID, err))
			continue
		}
		if err := m.closer.Schedule(ctx, thread.ID, OwnerLeftDelay, models.CloseOwnerLeft); err != nil {
			utils.Error("Lifecycle", "MemberLeave", err.Error())
		}
		scheduled++
	}
	if scheduled > 0 {
		m.count(ctx, "owner_left")
	}
	return scheduled, nil
}

// MarkIncomplete asks the owner for more details. Without a reply from the
// owner the post closes after IncompleteDelay.
func (m *Manager) MarkIncomplete(ctx context.Context, threadID string, actor *discordgo.Member) (*discordgo.Message, error) {
	thread, err := m.SupportThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	owner := ResolveOwner(ctx, m.p, thread)
	if !m.canDrive(actor, owner) {
		return nil, ErrNotAuthorized
	}
	if m.tags.IsSolved(thread.AppliedTags) {
		return nil, ErrAlreadySolved
	}
	if prev, ok := m.registry.Incomplete(thread.ID); ok {
		m.retire(ctx, thread.ID, prev.MessageID, "")
	}

	sent, err := m.p.Send(ctx, thread.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Hey %s!", mention(owner)),
		Embeds:  []*discordgo.MessageEmbed{incompleteEmbed(m.now().Add(IncompleteDelay))},
	})
	if err != nil {
		return nil, fmt.Errorf("send incomplete notice: %w", err)
	}
	m.attach(ctx, views.Control{
		Kind:      models.ViewIncomplete,
		MessageID: sent.ID,
		ChannelID: thread.ParentID,
		ThreadID:  thread.ID,
		OwnerID:   owner,
		Persisted: true,
	})
	if err := m.closer.Schedule(ctx, thread.ID, IncompleteDelay, models.CloseIncomplete); err != nil {
		utils.Error("Lifecycle", "MarkIncomplete", err.Error())
	}
	m.count(ctx, "incomplete")
	return sent, nil
}

// resolveIncomplete stops the incomplete countdown once the owner replies.
func (m *Manager) resolveIncomplete(ctx context.Context, threadID, authorID string) bool {
	c, ok := m.registry.Incomplete(threadID)
	if !ok || c.OwnerID != authorID {
		return false
	}
	var embeds []*discordgo.MessageEmbed
	if prev, err := m.p.Message(ctx, threadID, c.MessageID); err == nil {
		embeds = prev.Embeds
	}
	m.editControlMessage(ctx, threadID, c.MessageID,
		struck(embeds, "Thanks for providing the details! Your post will not be closed automatically."),
		[]discordgo.MessageComponent{})
	m.registry.Unregister(c.MessageID)
	if err := m.store.MarkViewSolved(ctx, c.MessageID); err != nil {
		utils.Warn("Lifecycle", "MarkViewSolved", err.Error())
	}
	if err := m.closer.Cancel(ctx, threadID); err != nil {
		utils.Warn("Lifecycle", "ResolveIncomplete", err.Error())
	}
	m.count(ctx, "incomplete_answered")
	return true
}
