// Package lifecycle drives support posts through their states: unanswered,
// waiting for reply, not solved, solved and finally locked and archived.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coolbot/models"
	"coolbot/platform"
	"coolbot/telemetry"
	"coolbot/utils"
	"coolbot/views"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNotAuthorized    = errors.New("not authorized")
	ErrAlreadySolved    = errors.New("post already solved")
	ErrNotSolved        = errors.New("post is not solved")
	ErrNotThread        = errors.New("not a thread")
	ErrNotSupportPost   = errors.New("not a support post")
	ErrAlreadyEscalated = errors.New("post already marked for dev review")
	ErrNotConfigured    = errors.New("channel not configured")
)

// Closure delays.
const (
	SolvedCloseDelay    = time.Hour
	StarterDeletedDelay = 5 * time.Minute
	OwnerLeftDelay      = 5 * time.Minute
	IncompleteDelay     = 12 * time.Hour
)

// Store is the persistence the lifecycle needs.
type Store interface {
	ClosureStore
	AddView(ctx context.Context, v models.PersistentView) error
	RemoveView(ctx context.Context, messageID string) error
	RemoveThreadViews(ctx context.Context, threadID string) (int64, error)
	MarkViewSolved(ctx context.Context, messageID string) error
	ThreadViews(ctx context.Context, threadID string) ([]models.PersistentView, error)
}

// Options configures a Manager.
type Options struct {
	Platform     platform.Platform
	Store        Store
	Tags         models.TagConfig
	SupportForum string
	// CommunityForum receives posts moved out of support.
	CommunityForum string
	// TeamChannel and TeamRole receive dev review escalations.
	TeamChannel string
	TeamRole    string
	// GeneralChannel is watched for chat messages staff turn into posts;
	// PostLogThread records each move.
	GeneralChannel string
	PostLogThread  string
	Auth           *utils.Auth
	Registry       *views.Registry
	// AfterFunc and Now are replaced in tests.
	AfterFunc AfterFunc
	Now       func() time.Time
}

// Manager applies lifecycle transitions to support posts.
type Manager struct {
	p            platform.Platform
	store        Store
	tags         Tags
	supportForum string
	community    string
	teamChannel  string
	teamRole     string
	general      string
	postLog      string
	auth         *utils.Auth
	registry     *views.Registry
	closer       *Closer
	suggested    *SuggestionTracker
	now          func() time.Time

	transitions metric.Int64Counter
	closures    metric.Int64Counter
}

// NewManager wires a Manager and the Closer it owns.
func NewManager(opts Options) *Manager {
	m := &Manager{
		p:            opts.Platform,
		store:        opts.Store,
		tags:         NewTags(opts.Tags),
		supportForum: opts.SupportForum,
		community:    opts.CommunityForum,
		teamChannel:  opts.TeamChannel,
		teamRole:     opts.TeamRole,
		general:      opts.GeneralChannel,
		postLog:      opts.PostLogThread,
		auth:         opts.Auth,
		registry:     opts.Registry,
		suggested:    NewSuggestionTracker(),
		now:          opts.Now,
		transitions:  telemetry.Counter("coolbot/lifecycle", "lifecycle.transitions", "Support post state transitions"),
		closures:     telemetry.Counter("coolbot/lifecycle", "lifecycle.closures", "Support posts closed"),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.auth == nil {
		m.auth = utils.NewAuth(models.RoleConfig{})
	}
	if m.registry == nil {
		m.registry = views.NewRegistry()
	}
	m.closer = NewCloser(opts.Store, m.AutoClose, opts.AfterFunc)
	return m
}

// Closer returns the closure scheduler.
func (m *Manager) Closer() *Closer { return m.closer }

// Tags returns the tag calculator.
func (m *Manager) Tags() Tags { return m.tags }

// Registry returns the control registry.
func (m *Manager) Registry() *views.Registry { return m.registry }

func (m *Manager) count(ctx context.Context, transition string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("transition", transition)))
}

// Thread fetches a thread.
func (m *Manager) Thread(ctx context.Context, threadID string) (*discordgo.Channel, error) {
	ch, err := m.p.Channel(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !ch.IsThread() {
		return nil, ErrNotThread
	}
	return ch, nil
}

// SupportThread fetches a thread and checks it belongs to the support forum.
func (m *Manager) SupportThread(ctx context.Context, threadID string) (*discordgo.Channel, error) {
	ch, err := m.Thread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if ch.ParentID != m.supportForum {
		return nil, ErrNotSupportPost
	}
	return ch, nil
}

// Owner resolves the owner of a post.
func (m *Manager) Owner(ctx context.Context, thread *discordgo.Channel) string {
	return ResolveOwner(ctx, m.p, thread)
}

func actorID(actor *discordgo.Member) string {
	if actor == nil || actor.User == nil {
		return ""
	}
	return actor.User.ID
}

// canDrive reports whether actor may change the state of a post owned by ownerID.
func (m *Manager) canDrive(actor *discordgo.Member, ownerID string) bool {
	id := actorID(actor)
	return (id != "" && id == ownerID) || m.auth.IsAuthorized(actor)
}

// applyTags replaces the thread's tags with next in a single edit. Nothing
// is sent when the set did not change.
func (m *Manager) applyTags(ctx context.Context, thread *discordgo.Channel, next []string) error {
	if SameSet(thread.AppliedTags, next) {
		return nil
	}
	if _, err := m.p.EditThread(ctx, thread.ID, &discordgo.ChannelEdit{AppliedTags: &next}); err != nil {
		return fmt.Errorf("edit tags of %s: %w", thread.ID, err)
	}
	thread.AppliedTags = next
	return nil
}

// UpdateTags fetches a thread and applies next to its current tags.
func (m *Manager) UpdateTags(ctx context.Context, threadID string, next func(applied []string) []string) (*discordgo.Channel, error) {
	ch, err := m.Thread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := m.applyTags(ctx, ch, next(ch.AppliedTags)); err != nil {
		return nil, err
	}
	return ch, nil
}

// attach registers a control and persists it when required.
func (m *Manager) attach(ctx context.Context, c views.Control) {
	m.registry.Register(c)
	if !c.Persisted {
		return
	}
	if err := m.store.AddView(ctx, c.Row()); err != nil {
		utils.Error("Lifecycle", "SaveView", fmt.Sprintf("message %s: %v", c.MessageID, err))
	}
}

// retire strikes through a control's message, removes its buttons and
// forgets the control.
func (m *Manager) retire(ctx context.Context, threadID, messageID, note string) {
	var embeds []*discordgo.MessageEmbed
	if prev, err := m.p.Message(ctx, threadID, messageID); err == nil {
		embeds = prev.Embeds
	}
	m.editControlMessage(ctx, threadID, messageID, struck(embeds, note), []discordgo.MessageComponent{})
	m.registry.Unregister(messageID)
	if err := m.store.RemoveView(ctx, messageID); err != nil {
		utils.Warn("Lifecycle", "RemoveView", err.Error())
	}
}

func (m *Manager) editControlMessage(ctx context.Context, channelID, messageID string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) *discordgo.Message {
	edited, err := m.p.EditMessage(ctx, &discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		utils.Warn("Lifecycle", "EditMessage", fmt.Sprintf("message %s: %v", messageID, err))
		return nil
	}
	return edited
}

// HandleMessage runs the tag transitions for a message posted in a support
// post.
func (m *Manager) HandleMessage(ctx context.Context, msg *discordgo.Message) error {
	if msg.Author == nil {
		return nil
	}
	thread, err := m.SupportThread(ctx, msg.ChannelID)
	if err != nil {
		if errors.Is(err, ErrNotThread) || errors.Is(err, ErrNotSupportPost) || errors.Is(err, platform.ErrNotFound) {
			return nil
		}
		return err
	}
	if msg.ID == thread.ID {
		return m.onOpened(ctx, thread, msg)
	}
	if msg.Author.Bot || msg.Author.ID == m.p.BotID() {
		return nil
	}
	if thread.ThreadMetadata != nil && thread.ThreadMetadata.Locked {
		return nil
	}

	owner := ResolveOwner(ctx, m.p, thread)
	if msg.Author.ID == owner {
		m.resolveIncomplete(ctx, thread.ID, owner)
	}

	next := thread.AppliedTags
	if msg.Author.ID != owner {
		next = m.tags.Replied(next)
	}
	lastByOwner := msg.Author.ID == owner
	if last, err := m.p.Messages(ctx, thread.ID, 1, "", ""); err == nil && len(last) > 0 && last[0].Author != nil {
		lastByOwner = last[0].Author.ID == owner
	}
	next = m.tags.Waiting(next, lastByOwner)
	if err := m.applyTags(ctx, thread, next); err != nil {
		return err
	}

	if msg.Author.ID == owner {
		return m.maybeSuggest(ctx, thread, msg, owner)
	}
	return nil
}

func (m *Manager) onOpened(ctx context.Context, thread *discordgo.Channel, msg *discordgo.Message) error {
	if err := m.applyTags(ctx, thread, m.tags.Opened(thread.AppliedTags)); err != nil {
		return err
	}
	m.count(ctx, "opened")
	if msg.Author.ID == m.p.BotID() {
		return nil
	}
	_, err := m.p.Send(ctx, thread.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{guidanceEmbed()},
	})
	return err
}

// SolveRequest identifies who asks for a state change and, for button
// presses, the message the button sits on.
type SolveRequest struct {
	ThreadID        string
	Actor           *discordgo.Member
	SourceMessageID string
}

// MarkSolved tags a post as solved, posts the confirmation with a "not
// solved" control and schedules the post to close.
func (m *Manager) MarkSolved(ctx context.Context, req SolveRequest) (*discordgo.Message, error) {
	thread, err := m.SupportThread(ctx, req.ThreadID)
	if err != nil {
		return nil, err
	}
	owner := ResolveOwner(ctx, m.p, thread)
	if !m.canDrive(req.Actor, owner) {
		return nil, ErrNotAuthorized
	}
	if m.tags.IsSolved(thread.AppliedTags) {
		return nil, ErrAlreadySolved
	}
	if err := m.applyTags(ctx, thread, m.tags.Solve(thread.AppliedTags)); err != nil {
		return nil, err
	}
	if req.SourceMessageID != "" {
		m.retire(ctx, thread.ID, req.SourceMessageID, "")
	}

	if err := m.closer.Schedule(ctx, thread.ID, SolvedCloseDelay, models.CloseSolved); err != nil {
		utils.Error("Lifecycle", "MarkSolved", err.Error())
	}
	sent, err := m.p.Send(ctx, thread.ID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{solvedEmbed(actorID(req.Actor), m.now().Add(SolvedCloseDelay))},
		Components: views.NotSolvedComponents(),
	})
	if err != nil {
		return nil, fmt.Errorf("send solved confirmation: %w", err)
	}
	m.attach(ctx, views.Control{
		Kind:      models.ViewNotSolved,
		MessageID: sent.ID,
		ChannelID: thread.ParentID,
		ThreadID:  thread.ID,
		OwnerID:   owner,
		Solved:    true,
		Persisted: true,
	})
	m.count(ctx, "solved")
	return sent, nil
}

// MarkNotSolved reopens a solved post: the pending closure is cancelled and
// the "not solved" control is swapped for a "solved" one.
func (m *Manager) MarkNotSolved(ctx context.Context, req SolveRequest) (*discordgo.Message, error) {
	thread, err := m.SupportThread(ctx, req.ThreadID)
	if err != nil {
		return nil, err
	}
	owner := ResolveOwner(ctx, m.p, thread)
	if !m.canDrive(req.Actor, owner) {
		return nil, ErrNotAuthorized
	}
	if !m.tags.IsSolved(thread.AppliedTags) {
		return nil, ErrNotSolved
	}
	if err := m.closer.Cancel(ctx, thread.ID); err != nil {
		utils.Warn("Lifecycle", "MarkNotSolved", err.Error())
	}
	if err := m.applyTags(ctx, thread, m.tags.Unsolve(thread.AppliedTags)); err != nil {
		return nil, err
	}

	control := views.Control{
		Kind:      models.ViewSolved,
		ChannelID: thread.ParentID,
		ThreadID:  thread.ID,
		OwnerID:   owner,
		Persisted: true,
	}
	var msg *discordgo.Message
	if req.SourceMessageID != "" {
		var previous []*discordgo.MessageEmbed
		if prev, err := m.p.Message(ctx, thread.ID, req.SourceMessageID); err == nil {
			previous = prev.Embeds
		}
		m.registry.Unregister(req.SourceMessageID)
		if err := m.store.RemoveView(ctx, req.SourceMessageID); err != nil {
			utils.Warn("Lifecycle", "RemoveView", err.Error())
		}
		msg = m.editControlMessage(ctx, thread.ID, req.SourceMessageID,
			[]*discordgo.MessageEmbed{notSolvedEmbed(previous, actorID(req.Actor))},
			views.SolvedComponents())
		if msg == nil {
			return nil, fmt.Errorf("edit message %s: %w", req.SourceMessageID, platform.ErrNotFound)
		}
	} else {
		if rows, err := m.store.ThreadViews(ctx, thread.ID); err == nil {
			for _, row := range rows {
				if row.ViewType == models.ViewNotSolved {
					m.retire(ctx, thread.ID, row.MessageID, "")
				}
			}
		}
		msg, err = m.p.Send(ctx, thread.ID, &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{notSolvedEmbed(nil, actorID(req.Actor))},
			Components: views.SolvedComponents(),
		})
		if err != nil {
			return nil, fmt.Errorf("send not solved notice: %w", err)
		}
	}
	control.MessageID = msg.ID
	m.attach(ctx, control)
	m.count(ctx, "not_solved")
	return msg, nil
}

// AutoClose is run by the Closer when a timer elapses. Threads that were
// closed in the meantime are left alone.
func (m *Manager) AutoClose(ctx context.Context, threadID string, reason models.CloseReason) error {
	thread, err := m.p.Channel(ctx, threadID)
	if err != nil {
		return fmt.Errorf("fetch thread %s: %w", threadID, err)
	}
	if !platform.IsThreadOpen(thread) {
		m.forget(ctx, threadID)
		return nil
	}
	return m.close(ctx, thread, closureNotice(reason), string(reason))
}

// close applies the solved tags, locks, posts notice and archives.
func (m *Manager) close(ctx context.Context, thread *discordgo.Channel, notice *discordgo.MessageEmbed, reason string) error {
	locked := true
	tags := m.tags.Solve(thread.AppliedTags)
	if _, err := m.p.EditThread(ctx, thread.ID, &discordgo.ChannelEdit{AppliedTags: &tags, Locked: &locked}); err != nil {
		return fmt.Errorf("lock thread %s: %w", thread.ID, err)
	}
	if notice != nil {
		if _, err := m.p.Send(ctx, thread.ID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{notice}}); err != nil {
			utils.Warn("Lifecycle", "Close", fmt.Sprintf("closure notice in %s: %v", thread.ID, err))
		}
	}
	if err := m.archive(ctx, thread.ID); err != nil {
		return err
	}
	m.forget(ctx, thread.ID)
	m.closures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	return nil
}

func (m *Manager) archive(ctx context.Context, threadID string) error {
	archived := true
	if _, err := m.p.EditThread(ctx, threadID, &discordgo.ChannelEdit{Archived: &archived}); err != nil {
		return fmt.Errorf("archive thread %s: %w", threadID, err)
	}
	return nil
}

// forget drops every control bound to a closed thread.
func (m *Manager) forget(ctx context.Context, threadID string) {
	m.registry.UnregisterThread(threadID)
	if _, err := m.store.RemoveThreadViews(ctx, threadID); err != nil {
		utils.Warn("Lifecycle", "RemoveThreadViews", err.Error())
	}
}

// CloseMode selects what a manual close does.
type CloseMode int

const (
	// CloseAsSolved tags the post solved, locks and archives it.
	CloseAsSolved CloseMode = iota
	// LockOnly locks the post and leaves it open for reading.
	LockOnly
	// LockAndArchive locks and archives without touching the tags.
	LockAndArchive
)

// ClosePost closes a thread on a staff member's request. Any scheduled
// closure is cancelled.
func (m *Manager) ClosePost(ctx context.Context, threadID string, actor *discordgo.Member, mode CloseMode) error {
	if !m.auth.IsAuthorized(actor) {
		return ErrNotAuthorized
	}
	thread, err := m.Thread(ctx, threadID)
	if err != nil {
		return err
	}
	if err := m.closer.Cancel(ctx, thread.ID); err != nil {
		utils.Warn("Lifecycle", "ClosePost", err.Error())
	}

	locked := true
	switch mode {
	case CloseAsSolved:
		return m.close(ctx, thread, closedByEmbed(actorID(actor)), "manual")
	case LockOnly:
		_, err = m.p.EditThread(ctx, thread.ID, &discordgo.ChannelEdit{Locked: &locked})
		return err
	case LockAndArchive:
		archived := true
		if _, err = m.p.EditThread(ctx, thread.ID, &discordgo.ChannelEdit{Locked: &locked, Archived: &archived}); err != nil {
			return err
		}
		m.forget(ctx, thread.ID)
		return nil
	}
	return fmt.Errorf("unknown close mode %d", mode)
}
