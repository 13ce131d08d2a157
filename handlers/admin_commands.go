package handlers

import (
	"context"
	"fmt"
	"strings"

	"coolbot/models"
	"coolbot/moderation"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

var ruleSubjects = map[models.RuleKind]string{
	models.RuleAutoResponse: "autoresponse",
	models.RuleAutomod:      "automoderation rule",
}

func (h *Handler) addRule(kind models.RuleKind, textOption string) commandFunc {
	return func(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
		r := models.Rule{
			Name:  strings.TrimSpace(stringOption(i, "name")),
			Regex: stringOption(i, "regex"),
			Text:  stringOption(i, textOption),
		}
		id, err := h.app.Moderator.AddRule(ctx, kind, r)
		if err != nil {
			return err
		}
		return rp.ephemeralf("Added %s `%s` (ID %d).", ruleSubjects[kind], r.Name, id)
	}
}

func (h *Handler) viewRules(kind models.RuleKind) commandFunc {
	return func(ctx context.Context, rp *reply, _ *discordgo.InteractionCreate) error {
		rules, err := h.app.Moderator.Rules(ctx, kind)
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			return rp.ephemeralf("No %ss found.", ruleSubjects[kind])
		}
		embed, components := moderation.RulePage(rules, kind, 0)
		return rp.embed(embed, components...)
	}
}

func (h *Handler) deleteRule(kind models.RuleKind) commandFunc {
	return func(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
		removed, err := h.app.Moderator.DeleteRule(ctx, kind, stringOption(i, "identifier"))
		if err != nil {
			return err
		}
		return rp.ephemeralf("Deleted %s `%s` (ID %d).", ruleSubjects[kind], removed.Name, removed.ID)
	}
}

// handleRulePage flips the rule list to another page.
func (h *Handler) handleRulePage(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	kind, page, ok := moderation.ParsePageID(i.MessageComponentData().CustomID)
	if !ok {
		return rp.ephemeral("This button is no longer active.")
	}
	rules, err := h.app.Moderator.Rules(ctx, kind)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return rp.update(&discordgo.InteractionResponseData{
			Content:    fmt.Sprintf("No %ss found.", ruleSubjects[kind]),
			Embeds:     []*discordgo.MessageEmbed{},
			Components: []discordgo.MessageComponent{},
		})
	}
	embed, components := moderation.RulePage(rules, kind, page)
	return rp.update(&discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
}

// HandleEval runs a raw statement against the store. Admin only.
func (h *Handler) HandleEval(ctx context.Context, rp *reply, i *discordgo.InteractionCreate) error {
	res, err := h.app.Store.Eval(ctx, stringOption(i, "sql"))
	if err != nil {
		return rp.ephemeral(utils.Truncate(fmt.Sprintf("Error: %v", err), 2000))
	}
	return rp.ephemeral(utils.Truncate(res.Format(), 2000))
}

// HandleDocsSync runs the documentation sync now and shows its status.
func (h *Handler) HandleDocsSync(ctx context.Context, rp *reply, _ *discordgo.InteractionCreate) error {
	if err := rp.deferEphemeral(); err != nil {
		return err
	}
	updated, status := h.app.Docs.Sync(ctx)
	return rp.embed(docsStatusEmbed(updated, status))
}

func docsStatusEmbed(updated bool, st models.DocsSyncStatus) *discordgo.MessageEmbed {
	color, result := colorBlue, "Already up to date"
	switch {
	case st.Error != "":
		color, result = colorRed, "Failed: "+st.Error
	case updated:
		color, result = colorGreen, fmt.Sprintf("Updated, %d docs stored", st.DocsCount)
	}
	headers := "None"
	if st.UsedETagHeader {
		headers = "If-None-Match: " + orNone(st.CurrentETag)
	}
	return &discordgo.MessageEmbed{
		Title: "Documentation Sync",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Remote URL", Value: orNone(st.URL)},
			{Name: "Request Headers", Value: "`" + headers + "`"},
			{Name: "Response Status", Value: fmt.Sprintf("`%d`", st.ResponseStatus), Inline: true},
			{Name: "Current ETag", Value: "`" + orNone(st.CurrentETag) + "`", Inline: true},
			{Name: "Response ETag", Value: "`" + orNone(st.ResponseETag) + "`", Inline: true},
			{Name: "Sync Status", Value: utils.Truncate(result, 1024)},
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// HandleContributorsSync runs the contributor sync now.
func (h *Handler) HandleContributorsSync(ctx context.Context, rp *reply, _ *discordgo.InteractionCreate) error {
	if err := rp.deferEphemeral(); err != nil {
		return err
	}
	status, err := h.app.Contributors.Sync(ctx)
	if err != nil {
		return rp.embed(&discordgo.MessageEmbed{
			Title:       "Sync Failed",
			Description: fmt.Sprintf("❌ Error syncing contributors: %v", err),
			Color:       colorRed,
		})
	}
	desc := fmt.Sprintf("✅ Successfully synced %d contributors from GitHub (%d new).", status.Seen, status.Inserted)
	if len(status.RepoErrors) > 0 {
		desc += "\n\nSome repositories failed:\n- " + strings.Join(status.RepoErrors, "\n- ")
	}
	return rp.embed(&discordgo.MessageEmbed{
		Title:       "Contributors Sync Complete",
		Description: utils.Truncate(desc, 4096),
		Color:       colorGreen,
	})
}
