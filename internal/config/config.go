// Package config loads server configuration from an optional YAML file
// with environment variable overrides. Precedence is defaults, then the
// file, then the environment.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the authority server settings. Loaded once at startup
// and treated as immutable afterwards.
type Config struct {
	// ListenAddr is the HTTP listen address for the authority.
	ListenAddr string `yaml:"listen_addr"`

	// DatabaseDir is the directory holding the per-user store files and
	// the authority event log.
	DatabaseDir string `yaml:"database_dir"`

	// SyncURL is the base URL clients dial for sync (ws:// or wss://).
	SyncURL string `yaml:"sync_url"`

	// SessionCookie is the name of the session credential cookie.
	SessionCookie string `yaml:"session_cookie"`

	// PushRate is the sustained pushes per second allowed per user.
	PushRate float64 `yaml:"push_rate"`

	// PushBurst is the per-user push burst size.
	PushBurst int `yaml:"push_burst"`

	// PollTimeout bounds how long a long-poll pull waits for events.
	PollTimeout time.Duration `yaml:"poll_timeout"`

	// Tokens maps session cookie values to user ids. Empty means the
	// authority accepts no one.
	Tokens map[string]string `yaml:"tokens"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		ListenAddr:    ":8080",
		DatabaseDir:   "data",
		SyncURL:       "ws://localhost:8080",
		SessionCookie: "ordo_session",
		PushRate:      10,
		PushBurst:     20,
		PollTimeout:   25 * time.Second,
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty; required to exist otherwise), then
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Strict field validation catches typos like "listen_adr:".
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ListenAddr = getEnvString("ORDO_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DatabaseDir = getEnvString("ORDO_DATABASE_DIR", cfg.DatabaseDir)
	cfg.SyncURL = getEnvString("ORDO_SYNC_URL", cfg.SyncURL)
	cfg.SessionCookie = getEnvString("ORDO_SESSION_COOKIE", cfg.SessionCookie)
	cfg.PushRate = getEnvFloat("ORDO_PUSH_RATE", cfg.PushRate)
	cfg.PushBurst = getEnvInt("ORDO_PUSH_BURST", cfg.PushBurst)
	cfg.PollTimeout = getEnvDuration("ORDO_POLL_TIMEOUT", cfg.PollTimeout)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if cfg.DatabaseDir == "" {
		return fmt.Errorf("database_dir is required")
	}
	if cfg.SessionCookie == "" {
		return fmt.Errorf("session_cookie is required")
	}
	if cfg.PushRate <= 0 {
		return fmt.Errorf("push_rate must be positive, got %v", cfg.PushRate)
	}
	if cfg.PushBurst <= 0 {
		return fmt.Errorf("push_burst must be positive, got %d", cfg.PushBurst)
	}
	if cfg.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive, got %v", cfg.PollTimeout)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
