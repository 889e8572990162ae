package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds runtime settings for the proxy
type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR"` // empty disables the metrics listener

	UpstreamBaseURL   string        `env:"UPSTREAM_BASE_URL" envDefault:"https://playentry.org"`
	UpstreamUserAgent string        `env:"UPSTREAM_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"`
	UpstreamTimeout   time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`

	// Extraction strategies, tried in order
	TokenStrategies []string `env:"TOKEN_STRATEGIES" envDefault:"script_bundle,embedded_json" envSeparator:","`
	TokenJSONPath   string   `env:"TOKEN_JSON_PATH" envDefault:"props.initialProps.csrfToken"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"45s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadDotEnv loads a .env file into the process environment if one exists.
// It reports whether a file was loaded.
func LoadDotEnv(filenames ...string) bool {
	return godotenv.Load(filenames...) == nil
}

// Load parses the environment into a Config and validates it
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that env parsing cannot
func (c Config) Validate() error {
	if c.UpstreamBaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_BASE_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid UPSTREAM_BASE_URL: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid UPSTREAM_BASE_URL: missing host")
	}
	if len(c.TokenStrategies) == 0 {
		return fmt.Errorf("TOKEN_STRATEGIES must name at least one strategy")
	}
	if c.UpstreamTimeout < 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must not be negative")
	}
	return nil
}
