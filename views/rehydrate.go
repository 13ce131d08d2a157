package views

import (
	"context"
	"errors"
	"fmt"

	"coolbot/models"

	"github.com/bwmarrin/discordgo"
)

// ChannelLookup resolves channels and threads, normally from the gateway cache.
type ChannelLookup interface {
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
}

// Report summarises one rehydration pass.
type Report struct {
	Registered int
	// Skipped rows reference a channel or thread that is gone. They stay in
	// the store.
	Skipped int
	// Rejected rows could not be turned into a control at all.
	Rejected []error
}

// Rehydrate re-registers a control for every stored row whose channel and
// thread still resolve. Rows are never deleted here and nothing is retried.
func Rehydrate(ctx context.Context, rows []models.PersistentView, lookup ChannelLookup, reg *Registry) Report {
	var rep Report
	for _, row := range rows {
		c, err := FromRow(row)
		if err != nil {
			rep.Rejected = append(rep.Rejected, err)
			continue
		}
		if !resolves(ctx, lookup, c.ChannelID) || !resolves(ctx, lookup, c.ThreadID) {
			rep.Skipped++
			continue
		}
		reg.Register(c)
		rep.Registered++
	}
	return rep
}

func resolves(ctx context.Context, lookup ChannelLookup, id string) bool {
	if id == "" {
		return false
	}
	ch, err := lookup.Channel(ctx, id)
	return err == nil && ch != nil
}

// Summary renders a report for the log channel.
func (r Report) Summary() string {
	s := fmt.Sprintf("registered %d, skipped %d, rejected %d", r.Registered, r.Skipped, len(r.Rejected))
	if len(r.Rejected) > 0 {
		s += ": " + errors.Join(r.Rejected...).Error()
	}
	return s
}
