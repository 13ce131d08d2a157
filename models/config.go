package models

// Config is the fully resolved bot configuration.
// It is populated by viper from config.yaml, config/*.json and the environment.
type Config struct {
	Discord   DiscordConfig   `json:"discord" mapstructure:"discord"`
	Channels  ChannelConfig   `json:"channels" mapstructure:"channels"`
	Roles     RoleConfig      `json:"roles" mapstructure:"roles"`
	Tags      TagConfig       `json:"tags" mapstructure:"tags"`
	Database  DatabaseConfig  `json:"database" mapstructure:"database"`
	Sync      SyncConfig      `json:"sync" mapstructure:"sync"`
	Ntfy      NtfyConfig      `json:"ntfy" mapstructure:"ntfy"`
	Health    HealthConfig    `json:"health" mapstructure:"health"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
	Rules     RuleSeed        `json:"rules" mapstructure:"rules"`
}

// DiscordConfig holds the gateway credentials.
type DiscordConfig struct {
	Token   string `json:"token" mapstructure:"token"`
	GuildID string `json:"guild_id" mapstructure:"guild_id"`
}

// ChannelConfig lists the channels and threads the bot works with.
type ChannelConfig struct {
	Support           string `json:"support" mapstructure:"support"`
	CommunitySupport  string `json:"community_support" mapstructure:"community_support"`
	General           string `json:"general" mapstructure:"general"`
	AutomodReport     string `json:"automod_report" mapstructure:"automod_report"`
	TeamAlert         string `json:"team_alert" mapstructure:"team_alert"`
	Contributors      string `json:"contributors" mapstructure:"contributors"`
	LogThread         string `json:"log_thread" mapstructure:"log_thread"`
	PostLogThread     string `json:"post_log_thread" mapstructure:"post_log_thread"`
	PageActionsThread string `json:"page_actions_thread" mapstructure:"page_actions_thread"`
	PrivateDataThread string `json:"private_data_thread" mapstructure:"private_data_thread"`
}

// RoleConfig lists the roles that gate commands or get pinged.
type RoleConfig struct {
	Authorized  string `json:"authorized" mapstructure:"authorized"`
	Admin       string `json:"admin" mapstructure:"admin"`
	ReportsPing string `json:"reports_ping" mapstructure:"reports_ping"`
	TeamAlert   string `json:"team_alert" mapstructure:"team_alert"`
	Contributor string `json:"contributor" mapstructure:"contributor"`
}

// TagConfig maps the forum tag vocabulary to the forum's tag ids.
type TagConfig struct {
	Cloud           string `json:"cloud" mapstructure:"cloud"`
	Solved          string `json:"solved" mapstructure:"solved"`
	NotSolved       string `json:"not_solved" mapstructure:"not_solved"`
	NeedsDevReview  string `json:"needs_dev_review" mapstructure:"needs_dev_review"`
	Unanswered      string `json:"unanswered" mapstructure:"unanswered"`
	WaitingForReply string `json:"waiting_for_reply" mapstructure:"waiting_for_reply"`
	CommunitySolved string `json:"community_solved" mapstructure:"community_solved"`
}

// DatabaseConfig points at the sqlite file.
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// SyncConfig configures the periodic external sync jobs.
type SyncConfig struct {
	DocsURL     string   `json:"docs_url" mapstructure:"docs_url"`
	GithubAPI   string   `json:"github_api" mapstructure:"github_api"`
	GithubRepos []string `json:"github_repos" mapstructure:"github_repos"`
}

// NtfyConfig configures the paging relay.
type NtfyConfig struct {
	BaseURL       string `json:"base_url" mapstructure:"base_url"`
	Topic         string `json:"topic" mapstructure:"topic"`
	ResponseTopic string `json:"response_topic" mapstructure:"response_topic"`
	WebhookURL    string `json:"webhook_url" mapstructure:"webhook_url"`
}

// HealthConfig configures the gRPC health endpoint. An empty address disables it.
type HealthConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// TelemetryConfig toggles OpenTelemetry export.
type TelemetryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	Stdout  bool `json:"stdout" mapstructure:"stdout"`
}
