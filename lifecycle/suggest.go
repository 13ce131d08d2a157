package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"coolbot/classifier"
	"coolbot/models"
	"coolbot/platform"
	"coolbot/views"

	"github.com/bwmarrin/discordgo"
)

// SuggestionTracker remembers the threads that already got a "mark as
// solved?" prompt. It is process-local; after a restart a thread may be
// prompted once more.
type SuggestionTracker struct {
	mu   sync.Mutex
	sent map[string]struct{}
}

// NewSuggestionTracker returns an empty tracker.
func NewSuggestionTracker() *SuggestionTracker {
	return &SuggestionTracker{sent: make(map[string]struct{})}
}

// Sent reports whether threadID was already prompted.
func (s *SuggestionTracker) Sent(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[threadID]
	return ok
}

// Mark records threadID and reports whether it was new.
func (s *SuggestionTracker) Mark(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sent[threadID]; ok {
		return false
	}
	s.sent[threadID] = struct{}{}
	return true
}

// Forget drops threadID so it can be prompted again.
func (s *SuggestionTracker) Forget(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sent, threadID)
}

// maybeSuggest prompts the owner to close the post when their message reads
// like the problem is fixed.
func (m *Manager) maybeSuggest(ctx context.Context, thread *discordgo.Channel, msg *discordgo.Message, ownerID string) error {
	switch {
	case msg.ID == thread.ID,
		!platform.IsThreadOpen(thread),
		msg.Author == nil || msg.Author.ID != ownerID,
		m.tags.IsSolved(thread.AppliedTags),
		strings.TrimSpace(msg.Content) == "",
		m.suggested.Sent(thread.ID):
		return nil
	}
	// Mark reserves the thread so concurrent messages prompt once; a failed
	// send releases it.
	if !classifier.SuggestsSolved(msg.Content) || !m.suggested.Mark(thread.ID) {
		return nil
	}

	sent, err := m.p.Send(ctx, thread.ID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{suggestionEmbed()},
		Components: views.SolvedComponents(),
		Reference:  msg.Reference(),
	})
	if err != nil {
		m.suggested.Forget(thread.ID)
		return err
	}
	m.registry.Register(views.Control{
		Kind:      models.ViewSolved,
		MessageID: sent.ID,
		ChannelID: thread.ParentID,
		ThreadID:  thread.ID,
		OwnerID:   ownerID,
	})
	m.count(ctx, "suggested")
	return nil
}

// SuggestSolve lets staff prompt the owner to mark the post solved. The
// prompt replies to the owner's latest message when one is recent.
func (m *Manager) SuggestSolve(ctx context.Context, threadID string, actor *discordgo.Member) (*discordgo.Message, error) {
	if !m.auth.IsAuthorized(actor) {
		return nil, ErrNotAuthorized
	}
	thread, err := m.SupportThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if m.tags.IsSolved(thread.AppliedTags) {
		return nil, ErrAlreadySolved
	}
	owner := ResolveOwner(ctx, m.p, thread)

	send := &discordgo.MessageSend{
		Content:    "Hey " + mention(owner) + "!",
		Embeds:     []*discordgo.MessageEmbed{suggestionEmbed()},
		Components: views.SolvedComponents(),
	}
	if recent, err := m.p.Messages(ctx, thread.ID, 5, "", ""); err == nil {
		for _, msg := range recent {
			if msg.Author != nil && msg.Author.ID == owner {
				send.Content = ""
				send.Reference = msg.Reference()
				break
			}
		}
	}
	sent, err := m.p.Send(ctx, thread.ID, send)
	if err != nil {
		return nil, fmt.Errorf("send suggestion: %w", err)
	}
	m.suggested.Mark(thread.ID)
	m.registry.Register(views.Control{
		Kind:      models.ViewSolved,
		MessageID: sent.ID,
		ChannelID: thread.ParentID,
		ThreadID:  thread.ID,
		OwnerID:   owner,
	})
	m.count(ctx, "suggested")
	return sent, nil
}
