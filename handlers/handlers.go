package handlers

import (
	"context"
	"log"
	"sync"
	"time"

	"coolbot/bot"

	"github.com/bwmarrin/discordgo"
)

// eventTimeout bounds the work done for a single gateway event.
const eventTimeout = 30 * time.Second

// Responder answers interactions. *discordgo.Session implements it.
type Responder interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(i *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Handler routes gateway events and interactions to the application.
type Handler struct {
	app *bot.App
	r   Responder
	// base outlives single events; page listeners are bound to it.
	base    context.Context
	latency func() time.Duration

	commands map[string]commandFunc

	mu sync.Mutex
	// pages waiting for the "send anyway" confirmation, by nonce.
	pages map[string]pendingPage
}

// New creates a Handler for app answering through r.
func New(app *bot.App, r Responder) *Handler {
	h := &Handler{
		app:     app,
		r:       r,
		base:    context.Background(),
		latency: func() time.Duration { return 0 },
		pages:   make(map[string]pendingPage),
	}
	if app.Session != nil {
		h.latency = app.Session.HeartbeatLatency
	}
	h.commands = h.commandTable()
	return h
}

// Register all handlers to the bot.
func Register(app *bot.App) {
	h := New(app, app.Session)
	s := app.Session

	s.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) { h.InteractionCreate(i) })
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) { h.MessageCreate(m) })
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDelete) { h.MessageDelete(m) })
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberRemove) { h.MemberRemove(m) })

	// Add a ready handler to log when the bot is connected.
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v", r.User.Username)
		ctx, cancel := context.WithTimeout(h.base, 2*time.Minute)
		defer cancel()
		app.OnReady(ctx, r.User.Username)
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		log.Println("Disconnected from Discord")
		app.OnDisconnect()
	})
}

func (h *Handler) eventContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(h.base, eventTimeout)
}

// actor returns the invoking member. DMs carry only a user.
func actor(i *discordgo.InteractionCreate) *discordgo.Member {
	if i.Member != nil {
		return i.Member
	}
	if i.User != nil {
		return &discordgo.Member{User: i.User}
	}
	return nil
}

func actorID(i *discordgo.InteractionCreate) string {
	if m := actor(i); m != nil && m.User != nil {
		return m.User.ID
	}
	return ""
}
