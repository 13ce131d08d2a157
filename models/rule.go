package models

// RuleKind selects one of the two admin-managed rule tables.
type RuleKind string

const (
	RuleAutoResponse RuleKind = "autoresponse"
	RuleAutomod      RuleKind = "automod"
)

// Rule is a named regex rule. Text is the reply for auto-responses and the
// reason for auto-moderation rules.
type Rule struct {
	ID    int64  `json:"-" db:"id"`
	Name  string `json:"name" mapstructure:"name" db:"name"` // Unique
	Regex string `json:"regex" mapstructure:"regex" db:"regex"`
	Text  string `json:"text" mapstructure:"text" db:"text"`
}

// RuleSeed is the optional rule set merged from config/rules.json. Seeded
// rules are inserted once and never overwrite rules edited at runtime.
type RuleSeed struct {
	AutoResponses []Rule `json:"autoresponses" mapstructure:"autoresponses"`
	Automod       []Rule `json:"automod" mapstructure:"automod"`
}
