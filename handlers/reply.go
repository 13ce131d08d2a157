package handlers

import (
	"errors"
	"fmt"

	"coolbot/classifier"
	"coolbot/database"
	"coolbot/lifecycle"
	"coolbot/platform"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

const genericFailure = "Something went wrong."

// reply tracks how far an interaction has been answered so later messages
// use the right endpoint.
type reply struct {
	r        Responder
	i        *discordgo.Interaction
	deferred bool
	done     bool
}

func (h *Handler) reply(i *discordgo.InteractionCreate) *reply {
	return &reply{r: h.r, i: i.Interaction}
}

// deferEphemeral acknowledges the interaction; the answer follows with send.
func (rp *reply) deferEphemeral() error {
	return rp.deferWith(discordgo.InteractionResponseDeferredChannelMessageWithSource, discordgo.MessageFlagsEphemeral)
}

// deferUpdate acknowledges a component without changing its message.
func (rp *reply) deferUpdate() error {
	err := rp.deferWith(discordgo.InteractionResponseDeferredMessageUpdate, 0)
	rp.done = true
	return err
}

func (rp *reply) deferWith(t discordgo.InteractionResponseType, flags discordgo.MessageFlags) error {
	err := rp.r.InteractionRespond(rp.i, &discordgo.InteractionResponse{
		Type: t,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
	rp.deferred = true
	return err
}

// send answers with data. After a deferral the original response is edited;
// once answered, a followup is sent.
func (rp *reply) send(data *discordgo.InteractionResponseData) error {
	switch {
	case rp.done:
		_, err := rp.r.FollowupMessageCreate(rp.i, true, &discordgo.WebhookParams{
			Content:    data.Content,
			Embeds:     data.Embeds,
			Components: data.Components,
			Flags:      data.Flags | discordgo.MessageFlagsEphemeral,
		})
		return err
	case rp.deferred:
		rp.done = true
		edit := &discordgo.WebhookEdit{Content: &data.Content}
		if data.Embeds != nil {
			edit.Embeds = &data.Embeds
		}
		if data.Components != nil {
			edit.Components = &data.Components
		}
		_, err := rp.r.InteractionResponseEdit(rp.i, edit)
		return err
	}
	rp.done = true
	return rp.r.InteractionRespond(rp.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// update replaces the message a component sits on.
func (rp *reply) update(data *discordgo.InteractionResponseData) error {
	rp.done = true
	return rp.r.InteractionRespond(rp.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
}

// edit replaces the original response, or the component's message after
// deferUpdate.
func (rp *reply) edit(content string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	rp.done = true
	_, err := rp.r.InteractionResponseEdit(rp.i, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	})
	return err
}

// remove deletes the original response, or the component's message after
// deferUpdate.
func (rp *reply) remove() error {
	rp.done = true
	return rp.r.InteractionResponseDelete(rp.i)
}

func (rp *reply) modal(data *discordgo.InteractionResponseData) error {
	rp.done = true
	return rp.r.InteractionRespond(rp.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: data,
	})
}

func (rp *reply) ephemeral(content string) error {
	return rp.send(&discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral})
}

func (rp *reply) ephemeralf(format string, args ...any) error {
	return rp.ephemeral(fmt.Sprintf(format, args...))
}

func (rp *reply) embed(e *discordgo.MessageEmbed, components ...discordgo.MessageComponent) error {
	return rp.send(&discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{e},
		Components: components,
		Flags:      discordgo.MessageFlagsEphemeral,
	})
}

// fail reports err to the user. Known errors get a specific message;
// anything else is logged and answered generically.
func (rp *reply) fail(op string, err error) {
	msg := userMessage(err)
	if msg == genericFailure {
		utils.Error("Handlers", op, err.Error())
	}
	if sendErr := rp.ephemeral(msg); sendErr != nil {
		utils.Warn("Handlers", op, fmt.Sprintf("could not report failure: %v", sendErr))
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, lifecycle.ErrNotAuthorized):
		return "You don't have permission to do this."
	case errors.Is(err, lifecycle.ErrAlreadySolved):
		return "This post is already marked as solved."
	case errors.Is(err, lifecycle.ErrNotSolved):
		return "This post is not marked as solved."
	case errors.Is(err, lifecycle.ErrNotThread):
		return "This command can only be used in a post."
	case errors.Is(err, lifecycle.ErrNotSupportPost):
		return "This command can only be used in a support post."
	case errors.Is(err, lifecycle.ErrAlreadyEscalated):
		return "This post is already marked for dev review."
	case errors.Is(err, lifecycle.ErrNotConfigured):
		return "This feature is not configured."
	case errors.Is(err, classifier.ErrInvalidPattern):
		return fmt.Sprintf("Could not save the rule, %v", err)
	case errors.Is(err, database.ErrDuplicate):
		return "A rule with that name already exists."
	case errors.Is(err, database.ErrNotFound):
		return "No rule matches that name or ID."
	case errors.Is(err, platform.ErrNotFound):
		return "That message or channel no longer exists."
	}
	return genericFailure
}
