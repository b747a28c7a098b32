// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Log      LogConfig
	Catalog  CatalogConfig
	Progress ProgressConfig
	Search   SearchConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL disables Postgres.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL disables the cache.
type CacheConfig struct {
	URL string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// CatalogConfig selects where the tutorial catalog comes from.
// RemoteURL wins over Path; with neither set the builtin catalog is used.
type CatalogConfig struct {
	Path      string
	RemoteURL string
}

// ProgressConfig holds client-side progress store settings.
type ProgressConfig struct {
	StateBackend    string // "file", "sqlite", "redis" or "memory"
	StatePath       string
	RemoteURL       string
	UserID          string
	SyncPolicy      string // "retry" or "drop"
	SyncAttempts    int
	RefreshInterval time.Duration
}

// SearchConfig holds search settings.
type SearchConfig struct {
	MaxResults   int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("LEARN_CACHE_URL", ""),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
		Catalog: CatalogConfig{
			Path:      envStr("LEARN_CATALOG_PATH", ""),
			RemoteURL: envStr("LEARN_CATALOG_REMOTE_URL", ""),
		},
		Progress: ProgressConfig{
			StateBackend:    envStr("LEARN_PROGRESS_STATE_BACKEND", "file"),
			StatePath:       envStr("LEARN_PROGRESS_STATE_PATH", "./.learn"),
			RemoteURL:       envStr("LEARN_PROGRESS_REMOTE_URL", ""),
			UserID:          envStr("LEARN_PROGRESS_USER_ID", "anonymous"),
			SyncPolicy:      envStr("LEARN_PROGRESS_SYNC_POLICY", "retry"),
			SyncAttempts:    envInt("LEARN_PROGRESS_SYNC_ATTEMPTS", 3),
			RefreshInterval: envDuration("LEARN_PROGRESS_REFRESH_INTERVAL", 30*time.Second),
		},
		Search: SearchConfig{
			MaxResults:   envInt("LEARN_SEARCH_MAX_RESULTS", 50),
			CacheEnabled: envBool("LEARN_SEARCH_CACHE_ENABLED", true),
			CacheTTL:     envDuration("LEARN_SEARCH_CACHE_TTL", 5*time.Minute),
		},
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Progress.StateBackend {
	case "file", "sqlite", "memory":
	case "redis":
		if c.Cache.URL == "" {
			return fmt.Errorf("LEARN_CACHE_URL is required when LEARN_PROGRESS_STATE_BACKEND is redis")
		}
	default:
		return fmt.Errorf("LEARN_PROGRESS_STATE_BACKEND must be 'file', 'sqlite', 'redis' or 'memory', got %q", c.Progress.StateBackend)
	}

	if c.Progress.SyncPolicy != "retry" && c.Progress.SyncPolicy != "drop" {
		return fmt.Errorf("LEARN_PROGRESS_SYNC_POLICY must be 'retry' or 'drop', got %q", c.Progress.SyncPolicy)
	}
	if c.Progress.SyncAttempts < 1 {
		return fmt.Errorf("LEARN_PROGRESS_SYNC_ATTEMPTS must be at least 1, got %d", c.Progress.SyncAttempts)
	}

	if c.Search.MaxResults < 1 {
		return fmt.Errorf("LEARN_SEARCH_MAX_RESULTS must be at least 1, got %d", c.Search.MaxResults)
	}

	return nil
}

// HasDatabase returns true if a Postgres URL is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasCache returns true if a Redis URL is configured.
func (c *Config) HasCache() bool {
	return c.Cache.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// envDuration accepts Go duration strings ("30s") or bare seconds ("30").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second
	}
	return fallback
}
