package utils

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// EmbedSender posts an embed to a channel. *discordgo.Session satisfies it.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var (
	mu        sync.RWMutex
	sender    EmbedSender
	channelID string
)

// InitLogger routes log entries to a Discord log thread in addition to stdout.
func InitLogger(s EmbedSender, logChannelID string) {
	mu.Lock()
	defer mu.Unlock()
	sender = s
	channelID = logChannelID
	if channelID == "" {
		log.Println("Warning: channels.log_thread is not set. Logging to channel will be disabled.")
	}
}

// Log writes a log entry to stdout and, when configured, to the log thread.
func Log(level, module, operation, details string) {
	log.Printf("[%s] Module: %s, Operation: %s, Details: %s", level, module, operation, details)

	mu.RLock()
	s, ch := sender, channelID
	mu.RUnlock()
	if s == nil || ch == "" {
		return
	}

	var color int
	switch level {
	case "INFO":
		color = ColorInfo
	case "WARN":
		color = ColorWarn
	case "ERROR":
		color = ColorError
	default:
		color = ColorInfo
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Module",
				Value:  module,
				Inline: true,
			},
			{
				Name:   "Operation",
				Value:  operation,
				Inline: true,
			},
			{
				Name:  "Details",
				Value: truncateField(details),
			},
		},
	}

	if _, err := s.ChannelMessageSendEmbed(ch, embed); err != nil {
		log.Printf("Error sending log message to Discord: %v", err)
	}
}

// Embed field values are capped at 1024 characters.
func truncateField(s string) string {
	if s == "" {
		return "-"
	}
	return Truncate(s, 1024)
}

// Info logs an informational message.
func Info(module, operation, details string) {
	Log("INFO", module, operation, details)
}

// Warn logs a warning message.
func Warn(module, operation, details string) {
	Log("WARN", module, operation, details)
}

// Error logs an error message.
func Error(module, operation, details string) {
	Log("ERROR", module, operation, details)
}
