package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Listener waits on the response topic for answers to sent pages. Each
// page gets its own subscription; active subscriptions live only for the
// life of the process.
type Listener struct {
	wsURL      string
	webhookURL string
	client     *http.Client
	dialer     *websocket.Dialer
	logf       func(format string, args ...any)

	mu     sync.Mutex
	active map[string]subscription
	gen    uint64
	wg     sync.WaitGroup
}

type subscription struct {
	gen    uint64
	cancel context.CancelFunc
}

// NewListener subscribes to {baseURL}/{topic}/ws. logf receives progress
// lines and may be nil.
func NewListener(baseURL, topic, webhookURL string, client *http.Client, logf func(string, ...any)) *Listener {
	u := strings.TrimRight(baseURL, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	if client == nil {
		client = http.DefaultClient
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Listener{
		wsURL:      u + "/" + topic + "/ws",
		webhookURL: webhookURL,
		client:     client,
		dialer:     websocket.DefaultDialer,
		logf:       logf,
		active:     make(map[string]subscription),
	}
}

type event struct {
	Event   string `json:"event"`
	Message string `json:"message"`
	Title   string `json:"title"`
}

// Watch starts a subscription for pageID. jumpURL links the relayed answer
// back to the page message.
func (l *Listener) Watch(ctx context.Context, pageID, jumpURL string) {
	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	if prev, ok := l.active[pageID]; ok {
		prev.cancel()
	}
	l.gen++
	gen := l.gen
	l.active[pageID] = subscription{gen: gen, cancel: cancel}
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.forget(pageID, gen, cancel)
		if err := l.listen(ctx, pageID, jumpURL); err != nil && ctx.Err() == nil {
			l.logf("Page websocket `%s` failed: %v", pageID, err)
		}
	}()
}

func (l *Listener) listen(ctx context.Context, pageID, jumpURL string) error {
	l.logf("Attempting to connect to WS with ID: `%s`", pageID)
	conn, _, err := l.dialer.DialContext(ctx, l.wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	defer conn.Close()
	l.logf("WS connected to ID: `%s`", pageID)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ws read: %w", err)
		}
		var ev event
		if json.Unmarshal(data, &ev) != nil {
			continue
		}
		if ev.Message != pageID || !isChoice(ev.Title) {
			continue
		}
		l.logf("Page response received: `%s`", ev.Title)
		if err := l.relay(ctx, ev.Title, jumpURL); err != nil {
			l.logf("Page response webhook failed: %v", err)
		}
		return nil
	}
}

func isChoice(title string) bool {
	switch title {
	case ChoiceOnIt, ChoiceSoon, ChoiceLater:
		return true
	}
	return false
}

func (l *Listener) relay(ctx context.Context, choice, jumpURL string) error {
	if l.webhookURL == "" {
		return nil
	}
	content := choice
	if jumpURL != "" {
		content += "\n-# Reply to " + jumpURL
	}
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func (l *Listener) forget(pageID string, gen uint64, cancel context.CancelFunc) {
	cancel()
	l.mu.Lock()
	defer l.mu.Unlock()
	// A newer Watch for the same id owns the slot now.
	if current, ok := l.active[pageID]; ok && current.gen == gen {
		delete(l.active, pageID)
	}
}

// Active returns the ids of pages still waiting for an answer.
func (l *Listener) Active() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.active))
	for id := range l.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops the subscription for pageID.
func (l *Listener) Close(pageID string) bool {
	l.mu.Lock()
	sub, ok := l.active[pageID]
	delete(l.active, pageID)
	l.mu.Unlock()
	if ok {
		sub.cancel()
	}
	return ok
}

// CloseAll stops every subscription and returns how many there were.
func (l *Listener) CloseAll() int {
	l.mu.Lock()
	subs := l.active
	l.active = make(map[string]subscription)
	l.mu.Unlock()
	for _, sub := range subs {
		sub.cancel()
	}
	return len(subs)
}

// Wait blocks until every subscription goroutine has returned.
func (l *Listener) Wait() {
	l.wg.Wait()
}
