package gemini

import (
	"log/slog"
	"time"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

type Config struct {
	APIKey         string
	Model          string
	ConnectTimeout time.Duration
	// EventBuffer is the number of inbound events queued for the session.
	EventBuffer int
	Logger      *slog.Logger
	// HTTPOptions overrides the API endpoint, used in tests.
	HTTPOptions genai.HTTPOptions
}

func (c *Config) Defaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = 64
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
