package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestPublish(t *testing.T) {
	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	now := time.Unix(1700000000, 0)
	p := NewPublisher(srv.Client(), srv.URL, "alerts", "answers")
	p.now = func() time.Time { return now }

	id, err := p.Publish(context.Background(), Page{
		Title: "API down | Sent by @alice", Message: "500s everywhere", Priority: 4, Click: "https://discord/jump",
	}, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	assert.Equal(t, "alerts", got.Topic)
	assert.Equal(t, []string{"red_circle"}, got.Tags)
	assert.Equal(t, 5, got.Priority)
	assert.Equal(t, "https://discord/jump", got.Click)
	require.Len(t, got.Actions, 3)
	for _, a := range got.Actions {
		assert.Equal(t, "http", a.Action)
		assert.Equal(t, srv.URL+"/answers", a.URL)
		assert.Equal(t, id, a.Headers["message"])
		assert.True(t, a.Clear)
	}
	assert.Equal(t, ChoiceSoon, got.Actions[1].Headers["Title"])

	recent, ok := p.Recent()
	require.True(t, ok)
	assert.Equal(t, id, recent.ID)
	assert.Equal(t, "u1", recent.UserID)

	now = now.Add(RecentWindow + time.Second)
	_, ok = p.Recent()
	assert.False(t, ok)
}

func TestPublishVariants(t *testing.T) {
	p := NewPublisher(nil, "https://ntfy.example", "alerts", "")

	msg := p.build("id", Page{Title: "t", Message: "m", Priority: 2, Automated: true})
	assert.Equal(t, []string{"yellow_circle", "robot"}, msg.Tags)
	assert.Zero(t, msg.Priority)
	assert.Empty(t, msg.Actions)

	msg = p.build("id", Page{Priority: 9})
	assert.Equal(t, []string{"question"}, msg.Tags)
}

func TestPublishRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic is reserved", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewPublisher(srv.Client(), srv.URL, "alerts", "").Publish(context.Background(), Page{Priority: 1}, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "topic is reserved")
}

func TestListenerRelaysAnswer(t *testing.T) {
	relayed := make(chan string, 1)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		relayed <- body.Content
		w.WriteHeader(http.StatusNoContent)
	}))
	defer webhook.Close()

	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/answers/ws", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, ev := range []string{
			`{"event":"open"}`,
			`not json`,
			`{"event":"message","message":"other-page","title":"On it"}`,
			`{"event":"message","message":"page-1","title":"something else"}`,
			`{"event":"message","message":"page-1","title":"Soon (Next 30 mins)"}`,
		} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(ev)); err != nil {
				return
			}
		}
		// Hold the connection until the client hangs up.
		conn.ReadMessage()
	}))
	defer ntfy.Close()

	var logs []string
	l := NewListener(ntfy.URL, "answers", webhook.URL, webhook.Client(), func(format string, args ...any) {
		logs = append(logs, format)
	})
	l.Watch(context.Background(), "page-1", "https://discord/jump")

	select {
	case content := <-relayed:
		assert.Equal(t, "Soon (Next 30 mins)\n-# Reply to https://discord/jump", content)
	case <-time.After(5 * time.Second):
		t.Fatal("answer was not relayed")
	}
	l.Wait()
	assert.Empty(t, l.Active())
	assert.Contains(t, strings.Join(logs, "\n"), "Page response received")
}

func TestListenerCloseAll(t *testing.T) {
	connected := make(chan struct{}, 2)
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		connected <- struct{}{}
		conn.ReadMessage()
	}))
	defer ntfy.Close()

	l := NewListener(ntfy.URL, "answers", "", nil, nil)
	l.Watch(context.Background(), "a", "")
	l.Watch(context.Background(), "b", "")
	for i := 0; i < 2; i++ {
		select {
		case <-connected:
		case <-time.After(5 * time.Second):
			t.Fatal("listener did not connect")
		}
	}
	assert.Equal(t, []string{"a", "b"}, l.Active())

	assert.True(t, l.Close("a"))
	assert.False(t, l.Close("a"))
	assert.Equal(t, 1, l.CloseAll())

	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("subscriptions did not stop")
	}
	assert.Empty(t, l.Active())
}
