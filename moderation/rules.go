package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"coolbot/classifier"
	"coolbot/models"
	"coolbot/utils"

	"github.com/bwmarrin/discordgo"
)

// AddRule validates the pattern and stores a new rule. An invalid pattern is
// rejected with the compiler's message before anything is written.
func (m *Moderator) AddRule(ctx context.Context, kind models.RuleKind, r models.Rule) (int64, error) {
	if _, err := classifier.Compile(r.Regex); err != nil {
		return 0, err
	}
	return m.rules.AddRule(ctx, kind, r)
}

// DeleteRule removes a rule by name or numeric id.
func (m *Moderator) DeleteRule(ctx context.Context, kind models.RuleKind, identifier string) (models.Rule, error) {
	return m.rules.DeleteRule(ctx, kind, identifier)
}

// Rules lists the rules of a kind.
func (m *Moderator) Rules(ctx context.Context, kind models.RuleKind) ([]models.Rule, error) {
	return m.rules.Rules(ctx, kind)
}

// Seed inserts the configured seed rules that are not stored yet. Rules with
// an invalid pattern are skipped.
func (m *Moderator) Seed(ctx context.Context, seed models.RuleSeed) (int, error) {
	added := 0
	for kind, rules := range map[models.RuleKind][]models.Rule{
		models.RuleAutoResponse: seed.AutoResponses,
		models.RuleAutomod:      seed.Automod,
	} {
		for _, r := range rules {
			if _, err := classifier.Compile(r.Regex); err != nil {
				utils.Warn("Moderation", "Seed", fmt.Sprintf("%s rule %q: %v", kind, r.Name, err))
				continue
			}
			ok, err := m.rules.SeedRule(ctx, kind, r)
			if err != nil {
				return added, err
			}
			if ok {
				added++
			}
		}
	}
	return added, nil
}

// PageButtonPrefix starts the custom id of rule list navigation buttons.
const PageButtonPrefix = "rules_page"

// PageID is the custom id of the button that shows page of kind.
func PageID(kind models.RuleKind, page int) string {
	return fmt.Sprintf("%s:%s:%d", PageButtonPrefix, kind, page)
}

// ParsePageID decodes a navigation button custom id.
func ParsePageID(customID string) (models.RuleKind, int, bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != PageButtonPrefix {
		return "", 0, false
	}
	kind := models.RuleKind(parts[1])
	if kind != models.RuleAutoResponse && kind != models.RuleAutomod {
		return "", 0, false
	}
	page, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, false
	}
	return kind, page, true
}

// RulePage renders one rule per page with previous/next buttons. The page
// is clamped to the available range; rules must not be empty.
func RulePage(rules []models.Rule, kind models.RuleKind, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	page = max(0, min(page, len(rules)-1))
	r := rules[page]

	title, textField, lang, color := "Available Autoresponses", "Response", "ruby", 0x3498db
	if kind == models.RuleAutomod {
		title, textField, lang, color = "Available automoderation rules", "Reason", "py", 0x2ecc71
	}
	embed := &discordgo.MessageEmbed{
		Title: title,
		Color: color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("(Page %d/%d)", page+1, len(rules)),
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: fmt.Sprintf("```py\n%d\n```", r.ID), Inline: true},
			{Name: "Name", Value: fmt.Sprintf("```py\n%s\n```", r.Name), Inline: true},
			{Name: "Regex", Value: fmt.Sprintf("```py\n%s\n```", r.Regex)},
			{Name: textField, Value: fmt.Sprintf("```%s\n%s\n```", lang, r.Text)},
		},
	}
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Previous",
				Style:    discordgo.SecondaryButton,
				CustomID: PageID(kind, page-1),
				Disabled: page == 0,
			},
			discordgo.Button{
				Label:    "Next",
				Style:    discordgo.SecondaryButton,
				CustomID: PageID(kind, page+1),
				Disabled: page == len(rules)-1,
			},
		}},
	}
	return embed, components
}
