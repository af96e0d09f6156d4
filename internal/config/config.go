// Package config provides configuration loading and validation for the CLI
// and the dashboard server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// SMTP holds outbound mail settings for newsletter delivery. Delivery is
// skipped entirely when Host is empty.
type SMTP struct {
	Host     string   `json:"host,omitempty"`
	Port     int      `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	From     string   `json:"from,omitempty" validate:"omitempty,email"`
	To       []string `json:"to,omitempty" validate:"omitempty,dive,email"`
}

// Enabled reports whether enough is configured to attempt delivery.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.From != "" && len(s.To) > 0
}

// Config represents the application configuration that can be loaded from a
// JSON file. All fields are optional; missing values use defaults.
type Config struct {
	// Paths
	CachePath string `json:"cache_path,omitempty"` // Append-only ratings cache CSV

	// Resolution
	Concurrency  int           `json:"concurrency,omitempty" validate:"omitempty,min=1,max=64"`
	FetchTimeout time.Duration `json:"-"`

	// Reporting
	RatingThreshold float64 `json:"rating_threshold,omitempty" validate:"omitempty,min=0,max=5"`

	// Scraping
	Venues []string `json:"venues,omitempty"` // empty means every registered venue

	// Server
	Port int `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`

	// Behavior
	Verbose bool `json:"verbose,omitempty"`

	SMTP SMTP `json:"smtp,omitempty"`

	// FetchTimeoutSeconds is the JSON-facing form of FetchTimeout.
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds,omitempty" validate:"omitempty,min=1,max=300"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		CachePath:       "movies_cache.csv",
		Concurrency:     15,
		FetchTimeout:    10 * time.Second,
		RatingThreshold: 4.0,
		Port:            8000,
	}
}

// Load reads configuration from an optional JSON file, fills in defaults,
// applies environment overrides, and validates the result. An empty path
// yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays environment variables on top of file values. Environment
// wins so deployments can override a checked-in config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("MOVIE_FINDER_CACHE_PATH"); v != "" {
		c.CachePath = v
	}
	if v := os.Getenv("MOVIE_FINDER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
	if v := os.Getenv("MOVIE_FINDER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = n
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
}

// applyDefaults fills zero-valued fields after file and environment merging.
func (c *Config) applyDefaults() {
	def := Default()
	if c.CachePath == "" {
		c.CachePath = def.CachePath
	}
	if c.Concurrency == 0 {
		c.Concurrency = def.Concurrency
	}
	if c.RatingThreshold == 0 {
		c.RatingThreshold = def.RatingThreshold
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.FetchTimeoutSeconds > 0 {
		c.FetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = def.FetchTimeout
	}
	if c.SMTP.Port == 0 && c.SMTP.Host != "" {
		c.SMTP.Port = 587
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}
