package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"coolbot/models"
	"coolbot/platform"
	"coolbot/telemetry"
	"coolbot/utils"
	"coolbot/views"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ClosureStore persists scheduled closures.
type ClosureStore interface {
	UpsertPendingClose(ctx context.Context, p models.PendingClose) error
	DeletePendingClose(ctx context.Context, threadID string) error
	PendingCloses(ctx context.Context) ([]models.PendingClose, error)
}

// FireFunc closes a thread once its timer elapses.
type FireFunc func(ctx context.Context, threadID string, reason models.CloseReason) error

// Timer is the part of *time.Timer the Closer uses.
type Timer interface {
	Stop() bool
}

// AfterFunc starts a timer. time.AfterFunc is used outside tests.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

const fireTimeout = time.Minute

type pendingTimer struct {
	gen    uint64
	timer  Timer
	reason models.CloseReason
}

// Closer owns every "close this thread later" timer. There is at most one
// timer per thread; scheduling again replaces it.
type Closer struct {
	store     ClosureStore
	fire      FireFunc
	afterFunc AfterFunc

	mu     sync.Mutex
	timers map[string]pendingTimer
	gen    uint64
	wg     sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewCloser creates a Closer that calls fire for every elapsed timer.
// A nil afterFunc uses time.AfterFunc.
func NewCloser(store ClosureStore, fire FireFunc, afterFunc AfterFunc) *Closer {
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Closer{
		store:     store,
		fire:      fire,
		afterFunc: afterFunc,
		timers:    make(map[string]pendingTimer),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// start replaces the in-memory timer for a thread.
func (c *Closer) start(threadID string, delay time.Duration, reason models.CloseReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.timers[threadID]; ok {
		cur.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timers[threadID] = pendingTimer{
		gen:    gen,
		reason: reason,
		timer:  c.afterFunc(delay, func() { c.run(threadID, gen) }),
	}
}

// Schedule closes threadID after delay. The closure is recorded in the store
// so that it is picked up again after a restart.
func (c *Closer) Schedule(ctx context.Context, threadID string, delay time.Duration, reason models.CloseReason) error {
	c.start(threadID, delay, reason)
	err := c.store.UpsertPendingClose(ctx, models.PendingClose{
		ThreadID: threadID,
		CloseAt:  int64(delay / time.Second),
		Reason:   reason,
	})
	if err != nil {
		return fmt.Errorf("persist closure for %s: %w", threadID, err)
	}
	return nil
}

// Countdown closes threadID after delay without recording it. It does not
// survive a restart.
func (c *Closer) Countdown(threadID string, delay time.Duration, reason models.CloseReason) {
	c.start(threadID, delay, reason)
}

// Cancel stops a thread's timer, if any, and always deletes its stored row.
func (c *Closer) Cancel(ctx context.Context, threadID string) error {
	c.mu.Lock()
	if cur, ok := c.timers[threadID]; ok {
		cur.timer.Stop()
		delete(c.timers, threadID)
	}
	c.mu.Unlock()
	return c.store.DeletePendingClose(ctx, threadID)
}

// Pending reports whether a timer is running for threadID.
func (c *Closer) Pending(threadID string) (models.CloseReason, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.timers[threadID]
	return cur.reason, ok
}

// Initialize restarts the stored closures. Rows whose thread is gone or
// already closed are deleted. The stored delay restarts in full.
func (c *Closer) Initialize(ctx context.Context, lookup views.ChannelLookup) (int, error) {
	rows, err := c.store.PendingCloses(ctx)
	if err != nil {
		return 0, err
	}
	restarted := 0
	for _, row := range rows {
		thread, err := lookup.Channel(ctx, row.ThreadID)
		if err != nil && !errors.Is(err, platform.ErrNotFound) {
			utils.Warn("Closer", "Initialize", fmt.Sprintf("thread %s: %v", row.ThreadID, err))
			continue
		}
		if err != nil || !platform.IsThreadOpen(thread) {
			if err := c.store.DeletePendingClose(ctx, row.ThreadID); err != nil {
				utils.Warn("Closer", "Initialize", err.Error())
			}
			continue
		}
		reason, err := models.ParseCloseReason(string(row.Reason))
		if err != nil {
			reason = models.CloseSolved
		}
		c.start(row.ThreadID, row.Delay(), reason)
		restarted++
	}
	return restarted, nil
}

func (c *Closer) run(threadID string, gen uint64) {
	c.mu.Lock()
	cur, ok := c.timers[threadID]
	if !ok || cur.gen != gen {
		// Cancelled or replaced after the timer went off.
		c.mu.Unlock()
		return
	}
	delete(c.timers, threadID)
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.baseCtx, fireTimeout)
	defer cancel()
	ctx, span := telemetry.Tracer("coolbot/lifecycle").Start(ctx, "closer.fire",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.String("close.reason", string(cur.reason)),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			utils.Error("Closer", "Fire", fmt.Sprintf("panic closing thread %s: %v", threadID, r))
			span.SetStatus(codes.Error, "panic")
		}
		c.cleanup(ctx, threadID)
	}()

	if err := c.fire(ctx, threadID, cur.reason); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		utils.Error("Closer", "Fire", fmt.Sprintf("failed to close thread %s: %v", threadID, err))
	}
}

// cleanup deletes the stored row unless the thread was scheduled again
// while the close ran.
func (c *Closer) cleanup(ctx context.Context, threadID string) {
	c.mu.Lock()
	_, rescheduled := c.timers[threadID]
	c.mu.Unlock()
	if rescheduled {
		return
	}
	if err := c.store.DeletePendingClose(ctx, threadID); err != nil {
		utils.Warn("Closer", "Cleanup", err.Error())
	}
}

// Stop cancels every timer and waits for running closures. Stored rows are
// kept for the next start.
func (c *Closer) Stop() {
	c.mu.Lock()
	for id, cur := range c.timers {
		cur.timer.Stop()
		delete(c.timers, id)
	}
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}
