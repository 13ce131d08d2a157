package lifecycle

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"coolbot/database"
	"coolbot/models"
	"coolbot/platform/platformtest"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

const (
	botID     = "bot"
	forumID   = "forum"
	staffRole = "staff"
)

var testNow = time.Unix(1700000000, 0)

type fakeTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeClock collects timers and runs them on demand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// elapse runs every timer that is still armed.
func (c *fakeClock) elapse() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) all() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTimer(nil), c.timers...)
}

func openStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.InitDB(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

type harness struct {
	fake  *platformtest.Fake
	store *database.Store
	clock *fakeClock
	m     *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := platformtest.New(botID)
	fake.AddForum(forumID)
	fake.AddForum("other-forum")
	fake.AddForum("community")
	fake.AddForum("team")
	fake.AddForum("general")
	fake.AddForum("post-log")
	store := openStore(t)
	clock := &fakeClock{}
	m := NewManager(Options{
		Platform:       fake,
		Store:          store,
		Tags:           testTags,
		SupportForum:   forumID,
		CommunityForum: "community",
		TeamChannel:    "team",
		TeamRole:       "devs",
		GeneralChannel: "general",
		PostLogThread:  "post-log",
		Auth:           utils.NewAuth(models.RoleConfig{Authorized: staffRole}),
		AfterFunc:      clock.AfterFunc,
		Now:            func() time.Time { return testNow },
	})
	t.Cleanup(m.Closer().Stop)
	return &harness{fake: fake, store: store, clock: clock, m: m}
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
}

func (h *harness) pendingCloses(t *testing.T) []models.PendingClose {
	t.Helper()
	rows, err := h.store.PendingCloses(context.Background())
	require.NoError(t, err)
	return rows
}

func (h *harness) threadViews(t *testing.T, threadID string) []models.PersistentView {
	t.Helper()
	rows, err := h.store.ThreadViews(context.Background(), threadID)
	require.NoError(t, err)
	return rows
}

func (h *harness) lastBotMessage(t *testing.T, threadID string) *discordgo.Message {
	t.Helper()
	msgs := h.fake.BotMessages(threadID)
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}
