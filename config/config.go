package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"coolbot/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// defaults are registered for every key so AutomaticEnv can populate keys
// that never appear in a config file.
var defaults = map[string]any{
	"discord.token":                "",
	"discord.guild_id":             "",
	"channels.support":             "",
	"channels.community_support":   "",
	"channels.general":             "",
	"channels.automod_report":      "",
	"channels.team_alert":          "",
	"channels.contributors":        "",
	"channels.log_thread":          "",
	"channels.post_log_thread":     "",
	"channels.page_actions_thread": "",
	"channels.private_data_thread": "",
	"roles.authorized":             "",
	"roles.admin":                  "",
	"roles.reports_ping":           "",
	"roles.team_alert":             "",
	"roles.contributor":            "",
	"tags.cloud":                   "",
	"tags.solved":                  "",
	"tags.not_solved":              "",
	"tags.needs_dev_review":        "",
	"tags.unanswered":              "",
	"tags.waiting_for_reply":       "",
	"tags.community_solved":        "",
	"database.path":                "database/bot.db",
	"sync.docs_url":                "https://next.coolify.io/docs/coolbot.json",
	"sync.github_api":              "https://api.github.com",
	"sync.github_repos":            []string{},
	"ntfy.base_url":                "https://ntfy.sh",
	"ntfy.topic":                   "",
	"ntfy.response_topic":          "",
	"ntfy.webhook_url":             "",
	"health.addr":                  "",
	"telemetry.enabled":            false,
	"telemetry.stdout":             false,
}

// LoadConfig loads configuration from several sources into the global viper
// instance and returns the typed result.
// Load order:
// 1. .env file (environment variables)
// 2. config.yaml (base configuration)
// 3. config/rules.json (seed rules, merged into the main configuration)
// Environment variables override values from the files.
func LoadConfig() (*models.Config, error) {
	// 1. Load .env; a missing file is fine.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, skipping.")
	}
	return load(viper.GetViper(), ".")
}

func load(v *viper.Viper, dir string) (*models.Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// Older deployments export the token under this name.
	if err := v.BindEnv("discord.token", "DISCORD_TOKEN", "DISCORD_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind token env: %w", err)
	}

	// 2. Base configuration.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
		log.Printf("No config.yaml found, using environment variables only.")
	}

	// 3. Seed rules.
	rules := viper.New()
	rules.SetConfigName("rules")
	rules.SetConfigType("json")
	rules.AddConfigPath(dir + "/config")
	if err := rules.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config/rules.json: %w", err)
		}
	} else if err := v.MergeConfigMap(map[string]any{"rules": rules.AllSettings()}); err != nil {
		return nil, fmt.Errorf("merge config/rules.json: %w", err)
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the bot cannot run with.
func Validate(cfg *models.Config) error {
	var missing []string
	if cfg.Discord.Token == "" {
		missing = append(missing, "discord.token")
	}
	if cfg.Discord.GuildID == "" {
		missing = append(missing, "discord.guild_id")
	}
	if cfg.Channels.Support == "" {
		missing = append(missing, "channels.support")
	}
	if cfg.Database.Path == "" {
		missing = append(missing, "database.path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}
