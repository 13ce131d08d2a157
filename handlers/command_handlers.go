package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"coolbot/command"
	"coolbot/lifecycle"
	"coolbot/models"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

// HandleSolved handles the logic for the /solved command.
func (h *Handler) HandleSolved(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if _, err := h.app.Lifecycle.MarkSolved(ctx, lifecycle.SolveRequest{ThreadID: i.ChannelID, Actor: actor(i)}); err != nil {
		return err
	}
	return rp.ephemeral("Post marked as solved.")
}

// HandleSuggest handles the logic for the /suggest-to-solve-the-post command.
func (h *Handler) HandleSuggest(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if _, err := h.app.Lifecycle.SuggestSolve(ctx, i.ChannelID, actor(i)); err != nil {
		return err
	}
	return rp.ephemeral("Suggestion sent to the post owner.")
}

// HandleIncomplete handles the logic for the /incomplete-post command.
func (h *Handler) HandleIncomplete(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if _, err := h.app.Lifecycle.MarkIncomplete(ctx, i.ChannelID, actor(i)); err != nil {
		return err
	}
	return rp.ephemeral("Post marked as incomplete.")
}

var closeModes = map[string]lifecycle.CloseMode{
	command.ClosePost: lifecycle.CloseAsSolved,
	command.LockPost:  lifecycle.LockOnly,
	command.LockClose: lifecycle.LockAndArchive,
}

var closeDone = map[lifecycle.CloseMode]string{
	lifecycle.CloseAsSolved:  "Post closed.",
	lifecycle.LockOnly:       "Post locked.",
	lifecycle.LockAndArchive: "Post locked and closed.",
}

// closeWith handles the manual close commands. The interaction is
// acknowledged first since archiving hides the thread.
func (h *Handler) closeWith(mode lifecycle.CloseMode) commandFunc {
	return func(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
		if err := rp.deferEphemeral(); err != nil {
			return err
		}
		if err := h.app.Lifecycle.ClosePost(ctx, i.ChannelID, actor(i), mode); err != nil {
			return err
		}
		return rp.ephemeral(closeDone[mode])
	}
}

// HandleNeedsDevReview escalates the post, or asks the given user for the
// dev review details first.
func (h *Handler) HandleNeedsDevReview(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if opt, ok := options(i)["user"]; ok {
		user := opt.UserValue(nil)
		if _, err := h.app.Lifecycle.RequestDevInfo(ctx, i.ChannelID, actor(i), user.ID); err != nil {
			return err
		}
		return rp.ephemeralf("Asked <@%s> for more details.", user.ID)
	}
	if err := h.app.Lifecycle.EscalateDevReview(ctx, i.ChannelID, actor(i)); err != nil {
		return err
	}
	return rp.ephemeral("Post marked for dev review and the team has been alerted.")
}

// HandleMoveToCommunity handles the logic for the /move-to-community command.
func (h *Handler) HandleMoveToCommunity(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	if err := rp.deferEphemeral(); err != nil {
		return err
	}
	moved, err := h.app.Lifecycle.MoveToCommunity(ctx, i.ChannelID, actor(i))
	if err != nil {
		return err
	}
	return rp.ephemeralf("Post moved to <#%s>.", moved.ID)
}

// docPingPrefix starts the custom id of the doc-search user picker.
const docPingPrefix = "doc_ping:"

// noPing is the picker value for sending without a mention.
const noPing = "none"

func docLines(entries []models.DocEntry, userID string) string {
	var b strings.Builder
	for _, e := range entries {
		kind := "guide"
		if strings.Contains(strings.ToLower(e.Link), "youtube.com") {
			kind = "video tutorial"
		}
		if userID != "" {
			fmt.Fprintf(&b, "Hey <@%s>, please follow this %s to solve your issue: %s\n", userID, kind, e.Link)
		} else {
			fmt.Fprintf(&b, "Please follow this %s to solve your issue: %s\n", kind, e.Link)
		}
	}
	return b.String()
}

// HandleDocSearch posts the matching documentation links. Inside a thread
// the invoker first picks a thread member to ping.
func (h *Handler) HandleDocSearch(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	query := stringOption(i, "query")
	results, err := h.app.Store.SearchDocs(ctx, query, 0)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return rp.ephemeral("No matching documents found.")
	}

	if _, err := h.app.Lifecycle.Thread(ctx, i.ChannelID); err != nil {
		return rp.send(&discordgo.InteractionResponseData{
			Content: docLines(results, ""),
			Flags:   discordgo.MessageFlagsSuppressEmbeds,
		})
	}

	var opts []discordgo.SelectMenuOption
	members, err := h.app.Platform.ThreadMembers(ctx, i.ChannelID)
	if err != nil {
		opts = []discordgo.SelectMenuOption{{Label: "Error fetching members", Value: noPing, Default: true, Description: "Could not load members."}}
	} else {
		for _, m := range members {
			if len(opts) == 24 {
				break
			}
			opts = append(opts, discordgo.SelectMenuOption{Label: memberLabel(m), Value: m.UserID})
		}
		opts = append(opts, discordgo.SelectMenuOption{Label: "No ping", Value: noPing, Description: "Send without pinging anyone"})
	}

	customID := utils.Cut(docPingPrefix+query, 100)
	return rp.embed(&discordgo.MessageEmbed{
		Title:       "Select User to Ping",
		Description: "Choose a user to notify with the documentation links, or select 'No ping' to send without mentioning anyone.",
		Color:       colorBlue,
	}, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    customID,
			Placeholder: "Select a user to ping",
			Options:     opts,
		},
	}})
}

func memberLabel(m *discordgo.ThreadMember) string {
	if m.Member != nil {
		if m.Member.Nick != "" {
			return m.Member.Nick
		}
		if m.Member.User != nil {
			return m.Member.User.Username
		}
	}
	return m.UserID
}

// handleDocPing sends the documentation links picked with the user picker
// into the thread and clears its waiting tags.
func (h *Handler) handleDocPing(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	data := i.MessageComponentData()
	query := strings.TrimPrefix(data.CustomID, docPingPrefix)
	userID := ""
	if len(data.Values) > 0 && data.Values[0] != noPing {
		userID = data.Values[0]
	}
	results, err := h.app.Store.SearchDocs(ctx, query, 0)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return rp.update(&discordgo.InteractionResponseData{Content: "No matching documents found.", Embeds: []*discordgo.MessageEmbed{}, Components: []discordgo.MessageComponent{}})
	}
	if _, err := h.app.Platform.Send(ctx, i.ChannelID, &discordgo.MessageSend{
		Content: docLines(results, userID),
		Flags:   discordgo.MessageFlagsSuppressEmbeds,
	}); err != nil {
		return err
	}
	tags := h.app.Lifecycle.Tags()
	if _, err := h.app.Lifecycle.UpdateTags(ctx, i.ChannelID, tags.DocAnswered); err != nil {
		return err
	}
	return rp.update(&discordgo.InteractionResponseData{
		Content:    "Documentation sent.",
		Embeds:     []*discordgo.MessageEmbed{},
		Components: []discordgo.MessageComponent{},
	})
}

// HandleChatGPT links a prefilled ChatGPT query.
func (h *Handler) HandleChatGPT(_ context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	query := stringOption(i, "query")
	link := "http://chat.com/?q=" + url.QueryEscape(query)
	return rp.send(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Description: fmt.Sprintf("### [%s](%s)", query, link),
			Footer:      &discordgo.MessageEmbedFooter{Text: "Recommended by " + displayName(actor(i), nil)},
		}},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "View in browser", Style: discordgo.LinkButton, URL: link},
		}}},
	})
}

// HandlePing handles the logic for the /ping command.
func (h *Handler) HandlePing(_ context.Context, rp *reply, _ *discordgo.InteractionCreate) error {
	latency := float64(h.latency().Microseconds()) / 1000
	return rp.send(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "I'm Alive!",
			Description: fmt.Sprintf("**Response time:** %.2fms", latency),
		}},
	})
}

const (
	colorBlue   = 0x3498db
	colorGreen  = 0x2ecc71
	colorRed    = 0xe74c3c
	colorOrange = 0xe67e22
	colorYellow = 0xf1c40f
)
