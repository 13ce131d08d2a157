// Package notify relays on-call pages through ntfy and waits for the
// responder's answer on a second topic.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Response choices offered on the pushed notification.
const (
	ChoiceOnIt  = "On it"
	ChoiceSoon  = "Soon (Next 30 mins)"
	ChoiceLater = "Later (> 1 hour)"
)

// RecentWindow is how long a sent page counts as recent.
const RecentWindow = 15 * time.Minute

var severityTags = map[int]string{
	1: "green_circle",
	2: "yellow_circle",
	3: "orange_circle",
	4: "red_circle",
}

// SeverityLabels are the choices of the /page priority option.
var SeverityLabels = map[int]string{
	4: "4 | Critical",
	3: "3 | Major issue",
	2: "2 | Minor issue",
	1: "1 | Information",
}

// Page is one outgoing alert.
type Page struct {
	Title     string
	Message   string
	Priority  int
	Click     string
	Icon      string
	Automated bool
}

// Recent describes the last page sent.
type Recent struct {
	ID       string
	UserID   string
	Title    string
	Message  string
	Priority int
	SentAt   time.Time
}

type action struct {
	Action  string            `json:"action"`
	Label   string            `json:"label"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Clear   bool              `json:"clear"`
}

type message struct {
	Topic    string   `json:"topic"`
	Message  string   `json:"message"`
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
	Priority int      `json:"priority,omitempty"`
	Click    string   `json:"click,omitempty"`
	Icon     string   `json:"icon,omitempty"`
	Actions  []action `json:"actions"`
}

// Publisher posts pages to an ntfy server.
type Publisher struct {
	client        *http.Client
	baseURL       string
	topic         string
	responseTopic string
	now           func() time.Time

	mu     sync.Mutex
	recent *Recent
}

// NewPublisher creates a publisher. An empty responseTopic sends pages
// without answer buttons.
func NewPublisher(client *http.Client, baseURL, topic, responseTopic string) *Publisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Publisher{
		client:        client,
		baseURL:       strings.TrimRight(baseURL, "/"),
		topic:         topic,
		responseTopic: responseTopic,
		now:           time.Now,
	}
}

// Enabled reports whether a topic is configured.
func (p *Publisher) Enabled() bool { return p.topic != "" }

// Recent returns the last page if it was sent within RecentWindow.
func (p *Publisher) Recent() (Recent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.recent == nil || p.now().Sub(p.recent.SentAt) > RecentWindow {
		return Recent{}, false
	}
	return *p.recent, true
}

// Publish sends page and returns its id. userID is recorded as the sender
// of the most recent page.
func (p *Publisher) Publish(ctx context.Context, page Page, userID string) (string, error) {
	id := uuid.NewString()
	body, err := json.Marshal(p.build(id, page))
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	p.mu.Lock()
	p.recent = &Recent{
		ID:       id,
		UserID:   userID,
		Title:    page.Title,
		Message:  page.Message,
		Priority: page.Priority,
		SentAt:   p.now(),
	}
	p.mu.Unlock()

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ntfy publish: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ntfy publish: status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return id, nil
}

func (p *Publisher) build(id string, page Page) message {
	tag, ok := severityTags[page.Priority]
	if !ok {
		tag = "question"
	}
	msg := message{
		Topic:   p.topic,
		Message: page.Message,
		Title:   page.Title,
		Tags:    []string{tag},
		Click:   page.Click,
		Icon:    page.Icon,
		Actions: []action{},
	}
	if page.Automated {
		msg.Tags = append(msg.Tags, "robot")
	}
	if page.Priority == 4 {
		msg.Priority = 5
	}
	if p.responseTopic != "" {
		target := p.baseURL + "/" + p.responseTopic
		for _, c := range []struct{ label, title string }{
			{"On it", ChoiceOnIt},
			{"Soon (Next 30mins)", ChoiceSoon},
			{"Later (>1 hour)", ChoiceLater},
		} {
			msg.Actions = append(msg.Actions, action{
				Action:  "http",
				Label:   c.label,
				URL:     target,
				Headers: map[string]string{"Title": c.title, "message": id},
				Clear:   true,
			})
		}
	}
	return msg
}
