package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Policy    PolicyConfig
	Feeds     FeedConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// PolicyConfig holds policy engine configuration.
type PolicyConfig struct {
	// DataDir holds blocklist.txt and state.json; empty means ~/.krillbrowser
	DataDir           string   `envconfig:"POLICY_DATA_DIR"`
	Profile           string   `envconfig:"POLICY_PROFILE" default:"default"`
	SearchURL         string   `envconfig:"POLICY_SEARCH_URL" default:"https://duckduckgo.com/?q=%s"`
	PhishingThreshold int      `envconfig:"POLICY_PHISHING_THRESHOLD" default:"90"`
	Whitelist         []string `envconfig:"POLICY_WHITELIST" default:"youtube.com,googlevideo.com"`
	NoRewriteHosts    []string `envconfig:"POLICY_NO_REWRITE_HOSTS" default:"googlevideo.com"`
	ProfileFile       string   `envconfig:"POLICY_PROFILE_FILE"`
	ClearHook         string   `envconfig:"POLICY_CLEAR_HOOK"`
	Persist           bool     `envconfig:"POLICY_PERSIST" default:"true"`
}

// FeedConfig holds remote blocklist feed configuration.
type FeedConfig struct {
	URLs    []string      `envconfig:"FEED_URLS"`
	Timeout time.Duration `envconfig:"FEED_TIMEOUT" default:"10s"`
	Retries int           `envconfig:"FEED_RETRIES" default:"3"`
	// Refresh is the reload interval; zero loads the feeds once at startup
	Refresh time.Duration `envconfig:"FEED_REFRESH" default:"24h"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Policy: PolicyConfig{
			Profile:           "default",
			SearchURL:         "https://duckduckgo.com/?q=%s",
			PhishingThreshold: 90,
			Whitelist:         []string{"youtube.com", "googlevideo.com"},
			NoRewriteHosts:    []string{"googlevideo.com"},
			Persist:           true,
		},
		Feeds: FeedConfig{
			Timeout: 10 * time.Second,
			Retries: 3,
			Refresh: 24 * time.Hour,
		},
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
