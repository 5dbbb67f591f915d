// Package config loads process configuration from a YAML file, a .env file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/engagement"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/signaling"
)

const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
	EnvUserID       = "LOVECALL_USER_ID"
	EnvLogLevel     = "LOVECALL_LOG_LEVEL"
	EnvRelayURL     = "LOVECALL_RELAY_URL"
	EnvRedisURL     = "LOVECALL_REDIS_URL"
	EnvDatabaseURL  = "LOVECALL_DATABASE_URL"
	EnvMetricsAddr  = "LOVECALL_METRICS_ADDR"
)

type RelayKind string

const (
	RelayWebsocket RelayKind = "ws"
	RelayRedis     RelayKind = "redis"
)

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type RelayConfig struct {
	Kind RelayKind `yaml:"kind"`
	// URL of the websocket relay server.
	URL      string `yaml:"url"`
	RedisURL string `yaml:"redis_url"`
	Prefix   string `yaml:"prefix"`
	// Addr and Path are used by the relay server.
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

type EngagementConfig struct {
	Intensity engagement.Intensity `yaml:"intensity"`
	Score     float64              `yaml:"score"`
	Interval  time.Duration        `yaml:"interval"`
}

type Config struct {
	UserID   string `yaml:"user_id"`
	LogLevel string `yaml:"log_level"`
	Persona  string `yaml:"persona"`
	Voice    string `yaml:"voice"`

	Gemini      GeminiConfig          `yaml:"gemini"`
	Relay       RelayConfig           `yaml:"relay"`
	DatabaseURL string                `yaml:"database_url"`
	MetricsAddr string                `yaml:"metrics_addr"`
	ICEServers  []signaling.ICEServer `yaml:"ice_servers"`
	Engagement  EngagementConfig      `yaml:"engagement"`
	Snapshot    time.Duration         `yaml:"snapshot_interval"`
}

func (c *Config) Defaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Voice == "" {
		c.Voice = "Kore"
	}
	if c.Relay.Kind == "" {
		c.Relay.Kind = RelayWebsocket
	}
	if c.Relay.URL == "" {
		c.Relay.URL = "ws://localhost:8080/relay"
	}
	if c.Relay.Prefix == "" {
		c.Relay.Prefix = "lovecall"
	}
	if c.Relay.Addr == "" {
		c.Relay.Addr = ":8080"
	}
	if c.Relay.Path == "" {
		c.Relay.Path = "/relay"
	}
	if c.Engagement.Intensity == "" {
		c.Engagement.Intensity = engagement.IntensityMedium
	}
	if c.Engagement.Score == 0 {
		c.Engagement.Score = engagement.DefaultScore
	}
	if c.Engagement.Interval == 0 {
		c.Engagement.Interval = time.Second
	}
	if c.Snapshot == 0 {
		c.Snapshot = time.Second
	}
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Relay.Kind {
	case RelayWebsocket, RelayRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown relay kind %q", c.Relay.Kind))
	}
	if c.Relay.Kind == RelayRedis && c.Relay.RedisURL == "" {
		errs = append(errs, fmt.Errorf("redis relay requires %s", EnvRedisURL))
	}
	if !c.Engagement.Intensity.Valid() {
		errs = append(errs, fmt.Errorf("unknown engagement intensity %q", c.Engagement.Intensity))
	}
	if c.Engagement.Interval < 0 || c.Snapshot < 0 {
		errs = append(errs, errors.New("intervals must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads the YAML file at path (optional), then .env files and the
// environment on top of it. Missing .env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()
		if err := Decode(f, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Decode strictly decodes YAML into cfg. Unknown keys are an error.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with the variables lookup finds.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.Gemini.APIKey, EnvGeminiAPIKey, EnvGoogleAPIKey)
	set(&c.UserID, EnvUserID)
	set(&c.LogLevel, EnvLogLevel)
	set(&c.Relay.URL, EnvRelayURL)
	set(&c.DatabaseURL, EnvDatabaseURL)
	set(&c.MetricsAddr, EnvMetricsAddr)
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		c.Relay.RedisURL = v
		if c.Relay.Kind == "" {
			c.Relay.Kind = RelayRedis
		}
	}
}

func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return lvl, fmt.Errorf("invalid log level [%s]: %w", s, err)
	}
	return lvl, nil
}
