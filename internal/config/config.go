// Package config handles application configuration via environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configurable values for the app. PixelID and
// AccessToken have no defaults; their absence is checked when the
// Conversions API client is constructed so the process fails at startup,
// not per-event.
type Config struct {
	Env        string `env:"ENV" envDefault:"development"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	PixelID        string        `env:"META_PIXEL_ID"`
	AccessToken    string        `env:"META_ACCESS_TOKEN"`
	TestEventCode  string        `env:"META_TEST_EVENT_CODE"`
	GraphBaseURL   string        `env:"META_GRAPH_BASE_URL" envDefault:"https://graph.facebook.com"`
	APIVersion     string        `env:"META_API_VERSION" envDefault:"v18.0"`
	RequestTimeout time.Duration `env:"META_REQUEST_TIMEOUT" envDefault:"5s"`

	DedupTTL time.Duration `env:"EVENT_DEDUP_TTL" envDefault:"5m"`
}

// Load reads environment variables and populates a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// EventsEndpoint returns the Graph API events URL for the configured pixel.
func (c *Config) EventsEndpoint() string {
	return fmt.Sprintf("%s/%s/%s/events", c.GraphBaseURL, c.APIVersion, c.PixelID)
}
