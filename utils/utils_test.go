package utils

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"coolbot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	auth := NewAuth(models.RoleConfig{Authorized: "staff", Admin: "admin"})

	staff := &discordgo.Member{Roles: []string{"x", "staff"}}
	admin := &discordgo.Member{Roles: []string{"admin"}}
	nobody := &discordgo.Member{}

	tests := []struct {
		name   string
		member *discordgo.Member
		level  string
		want   bool
	}{
		{"guest always passes", nobody, LevelGuest, true},
		{"guest without member", nil, LevelGuest, true},
		{"staff is authorized", staff, LevelAuthorized, true},
		{"staff is not admin", staff, LevelAdmin, false},
		{"admin is admin", admin, LevelAdmin, true},
		{"admin is not staff", admin, LevelAuthorized, false},
		{"no member", nil, LevelAuthorized, false},
		{"unknown level", admin, "root", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Member: tt.member}}
			assert.Equal(t, tt.want, auth.CheckPermission(i, tt.level))
		})
	}
}

func TestHasRoleIgnoresEmptyRole(t *testing.T) {
	assert.False(t, HasRole(&discordgo.Member{Roles: []string{""}}, ""))
}

type recordingSender struct {
	mu     sync.Mutex
	embeds []*discordgo.MessageEmbed
	err    error
}

func (r *recordingSender) ChannelMessageSendEmbed(_ string, e *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeds = append(r.embeds, e)
	return &discordgo.Message{}, r.err
}

func TestLogSendsEmbed(t *testing.T) {
	rec := &recordingSender{}
	InitLogger(rec, "log-thread")
	t.Cleanup(func() { InitLogger(nil, "") })

	Warn("Closer", "Fire", strings.Repeat("x", 2000))
	Error("Sync", "Docs", "")

	require.Len(t, rec.embeds, 2)
	assert.Equal(t, ColorWarn, rec.embeds[0].Color)
	assert.Len(t, rec.embeds[0].Fields[2].Value, 1024)
	assert.Equal(t, ColorError, rec.embeds[1].Color)
	assert.Equal(t, "-", rec.embeds[1].Fields[2].Value)
}

func TestLogSurvivesSendFailure(t *testing.T) {
	rec := &recordingSender{err: errors.New("missing access")}
	InitLogger(rec, "log-thread")
	t.Cleanup(func() { InitLogger(nil, "") })

	Info("Bot", "Ready", "connected")
	assert.Len(t, rec.embeds, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	out := Truncate(strings.Repeat("x", 4100), 4000)
	assert.Len(t, out, 4000)
	assert.True(t, strings.HasSuffix(out, "..."))

	accented := Truncate(strings.Repeat("ü", 10), 6)
	assert.Equal(t, "üüü...", accented)
	assert.Equal(t, "üü", Truncate("üüüü", 2))
}

func TestCut(t *testing.T) {
	assert.Equal(t, "日本", Cut("日本語", 2))
	assert.Equal(t, "abc", Cut("abc", 5))
	assert.Equal(t, "", Cut("abc", 0))
}
