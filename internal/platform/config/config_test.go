package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets all LEARN_ environment variables for a clean test.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"LEARN_SERVER_PORT",
		"LEARN_SERVER_HOST",
		"LEARN_DATABASE_URL",
		"LEARN_DATABASE_MAX_CONNS",
		"LEARN_DATABASE_MIN_CONNS",
		"LEARN_CACHE_URL",
		"LEARN_LOG_LEVEL",
		"LEARN_LOG_FORMAT",
		"LEARN_CATALOG_PATH",
		"LEARN_CATALOG_REMOTE_URL",
		"LEARN_PROGRESS_STATE_BACKEND",
		"LEARN_PROGRESS_STATE_PATH",
		"LEARN_PROGRESS_REMOTE_URL",
		"LEARN_PROGRESS_USER_ID",
		"LEARN_PROGRESS_SYNC_POLICY",
		"LEARN_PROGRESS_SYNC_ATTEMPTS",
		"LEARN_PROGRESS_REFRESH_INTERVAL",
		"LEARN_SEARCH_MAX_RESULTS",
		"LEARN_SEARCH_CACHE_ENABLED",
		"LEARN_SEARCH_CACHE_TTL",
	}
	for _, v := range envVars {
		_ = os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("Database.MaxConns = %d, want 25", cfg.Database.MaxConns)
	}
	if cfg.HasDatabase() {
		t.Error("HasDatabase() = true, want false by default")
	}
	if cfg.HasCache() {
		t.Error("HasCache() = true, want false by default")
	}
	if cfg.Progress.StateBackend != "file" {
		t.Errorf("Progress.StateBackend = %q, want file", cfg.Progress.StateBackend)
	}
	if cfg.Progress.SyncPolicy != "retry" {
		t.Errorf("Progress.SyncPolicy = %q, want retry", cfg.Progress.SyncPolicy)
	}
	if cfg.Progress.RefreshInterval != 30*time.Second {
		t.Errorf("Progress.RefreshInterval = %v, want 30s", cfg.Progress.RefreshInterval)
	}
	if cfg.Progress.UserID != "anonymous" {
		t.Errorf("Progress.UserID = %q, want anonymous", cfg.Progress.UserID)
	}
	if cfg.Search.MaxResults != 50 {
		t.Errorf("Search.MaxResults = %d, want 50", cfg.Search.MaxResults)
	}
	if !cfg.Search.CacheEnabled {
		t.Error("Search.CacheEnabled = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("LEARN_SERVER_PORT", "9090")
	t.Setenv("LEARN_DATABASE_URL", "postgres://u:p@db:5432/learn")
	t.Setenv("LEARN_CACHE_URL", "redis://cache:6379/1")
	t.Setenv("LEARN_PROGRESS_STATE_BACKEND", "sqlite")
	t.Setenv("LEARN_PROGRESS_SYNC_POLICY", "drop")
	t.Setenv("LEARN_PROGRESS_REFRESH_INTERVAL", "45")
	t.Setenv("LEARN_SEARCH_CACHE_TTL", "2m")
	t.Setenv("LEARN_SEARCH_CACHE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if !cfg.HasDatabase() || !cfg.HasCache() {
		t.Error("HasDatabase()/HasCache() should be true when URLs are set")
	}
	if cfg.Progress.StateBackend != "sqlite" {
		t.Errorf("Progress.StateBackend = %q, want sqlite", cfg.Progress.StateBackend)
	}
	if cfg.Progress.SyncPolicy != "drop" {
		t.Errorf("Progress.SyncPolicy = %q, want drop", cfg.Progress.SyncPolicy)
	}
	if cfg.Progress.RefreshInterval != 45*time.Second {
		t.Errorf("Progress.RefreshInterval = %v, want 45s", cfg.Progress.RefreshInterval)
	}
	if cfg.Search.CacheTTL != 2*time.Minute {
		t.Errorf("Search.CacheTTL = %v, want 2m", cfg.Search.CacheTTL)
	}
	if cfg.Search.CacheEnabled {
		t.Error("Search.CacheEnabled = true, want false")
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)

	t.Setenv("LEARN_SERVER_PORT", "not-a-number")
	t.Setenv("LEARN_PROGRESS_REFRESH_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want fallback 8080", cfg.Server.Port)
	}
	if cfg.Progress.RefreshInterval != 30*time.Second {
		t.Errorf("Progress.RefreshInterval = %v, want fallback 30s", cfg.Progress.RefreshInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "LEARN_SERVER_PORT"},
		{"unknown backend", func(c *Config) { c.Progress.StateBackend = "s3" }, "LEARN_PROGRESS_STATE_BACKEND"},
		{"redis backend without cache", func(c *Config) { c.Progress.StateBackend = "redis" }, "LEARN_CACHE_URL"},
		{"redis backend with cache", func(c *Config) {
			c.Progress.StateBackend = "redis"
			c.Cache.URL = "redis://localhost:6379"
		}, ""},
		{"bad sync policy", func(c *Config) { c.Progress.SyncPolicy = "later" }, "LEARN_PROGRESS_SYNC_POLICY"},
		{"zero attempts", func(c *Config) { c.Progress.SyncAttempts = 0 }, "LEARN_PROGRESS_SYNC_ATTEMPTS"},
		{"zero max results", func(c *Config) { c.Search.MaxResults = 0 }, "LEARN_SEARCH_MAX_RESULTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, _ := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
