package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coolbot/models"
	"coolbot/platform/platformtest"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fired struct {
	threadID string
	reason   models.CloseReason
}

type fireRecorder struct {
	mu    sync.Mutex
	calls []fired
	err   error
	panic bool
}

func (r *fireRecorder) fire(_ context.Context, threadID string, reason models.CloseReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fired{threadID, reason})
	if r.panic {
		panic("boom")
	}
	return r.err
}

func newTestCloser(t *testing.T) (*Closer, *fireRecorder, *fakeClock, ClosureStore) {
	t.Helper()
	store := openStore(t)
	rec := &fireRecorder{}
	clock := &fakeClock{}
	c := NewCloser(store, rec.fire, clock.AfterFunc)
	t.Cleanup(c.Stop)
	return c, rec, clock, store
}

func TestScheduleThenCancelNeverFires(t *testing.T) {
	ctx := context.Background()
	c, rec, clock, store := newTestCloser(t)

	require.NoError(t, c.Schedule(ctx, "t1", time.Hour, models.CloseSolved))
	require.NoError(t, c.Cancel(ctx, "t1"))

	rows, err := store.PendingCloses(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// Even a timer that already went off must not close the thread.
	for _, timer := range clock.all() {
		timer.f()
	}
	assert.Empty(t, rec.calls)
	_, pending := c.Pending("t1")
	assert.False(t, pending)
}

func TestCancelWithoutTimerDeletesRow(t *testing.T) {
	ctx := context.Background()
	c, _, _, store := newTestCloser(t)

	require.NoError(t, store.UpsertPendingClose(ctx, models.PendingClose{ThreadID: "t1", CloseAt: 60}))
	require.NoError(t, c.Cancel(ctx, "t1"))
	require.NoError(t, c.Cancel(ctx, "t1"))

	rows, err := store.PendingCloses(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSecondScheduleWins(t *testing.T) {
	ctx := context.Background()
	c, rec, clock, store := newTestCloser(t)

	require.NoError(t, c.Schedule(ctx, "t1", time.Hour, models.CloseSolved))
	require.NoError(t, c.Schedule(ctx, "t1", 5*time.Minute, models.CloseOwnerLeft))

	rows, err := store.PendingCloses(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(300), rows[0].CloseAt)
	assert.Equal(t, models.CloseOwnerLeft, rows[0].Reason)

	timers := clock.all()
	require.Len(t, timers, 2)
	assert.True(t, timers[0].stopped)

	// The replaced timer is stale.
	timers[0].f()
	assert.Empty(t, rec.calls)

	clock.elapse()
	require.Len(t, rec.calls, 1)
	assert.Equal(t, fired{"t1", models.CloseOwnerLeft}, rec.calls[0])

	rows, err = store.PendingCloses(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFireFailureStillCleansUp(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name  string
		setup func(r *fireRecorder)
	}{
		{"error", func(r *fireRecorder) { r.err = errors.New("missing permissions") }},
		{"panic", func(r *fireRecorder) { r.panic = true }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, rec, clock, store := newTestCloser(t)
			tc.setup(rec)

			require.NoError(t, c.Schedule(ctx, "t1", time.Hour, models.CloseSolved))
			assert.NotPanics(t, clock.elapse)

			assert.Len(t, rec.calls, 1)
			rows, err := store.PendingCloses(ctx)
			require.NoError(t, err)
			assert.Empty(t, rows)
			_, pending := c.Pending("t1")
			assert.False(t, pending)
		})
	}
}

func TestCountdownIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	c, rec, clock, store := newTestCloser(t)

	c.Countdown("t1", 5*time.Minute, models.CloseStarterDeleted)
	reason, pending := c.Pending("t1")
	require.True(t, pending)
	assert.Equal(t, models.CloseStarterDeleted, reason)

	rows, err := store.PendingCloses(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	clock.elapse()
	assert.Equal(t, []fired{{"t1", models.CloseStarterDeleted}}, rec.calls)
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	c, rec, clock, store := newTestCloser(t)

	fake := platformtest.New(botID)
	fake.AddForum(forumID)
	fake.AddThread("open", forumID, "u1")
	fake.AddThread("locked", forumID, "u2")
	locked := true
	_, err := fake.EditThread(ctx, "locked", &discordgo.ChannelEdit{Locked: &locked})
	require.NoError(t, err)

	for _, row := range []models.PendingClose{
		{ThreadID: "open", CloseAt: 3600, Reason: models.CloseIncomplete},
		{ThreadID: "locked", CloseAt: 3600},
		{ThreadID: "deleted", CloseAt: 3600},
	} {
		require.NoError(t, store.UpsertPendingClose(ctx, row))
	}

	n, err := c.Initialize(ctx, fake)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := store.PendingCloses(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "open", rows[0].ThreadID)

	timers := clock.all()
	require.Len(t, timers, 1)
	// The stored delay restarts in full.
	assert.Equal(t, time.Hour, timers[0].delay)

	clock.elapse()
	assert.Equal(t, []fired{{"open", models.CloseIncomplete}}, rec.calls)
}
