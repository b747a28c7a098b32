package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.Database.URL = ""
	cfg.Cache.URL = ""
	cfg.Catalog.RemoteURL = ""
	cfg.Catalog.Path = ""
	return cfg
}

func TestHealthEndpoints(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()
	h := a.server.Handler()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestNewApp_ServesBuiltinCatalog(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/learn/categories/dsa", nil)
	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"slug":"dsa"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestNewApp_CatalogDir(t *testing.T) {
	dir := t.TempDir()
	yaml := "slug: go\ntitle: Go\ntopics:\n  - slug: goroutines\n    title: Goroutines\n"
	if err := os.WriteFile(filepath.Join(dir, "go.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.Catalog.Path = dir
	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/learn/categories/go/topics/goroutines", nil)
	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestNewApp_BadDatabaseURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.URL = "not a url"

	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Error("newApp() with an invalid database URL should fail")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := newLogger(config.LogConfig{Level: tt.level, Format: "text"})
			ctx := context.Background()
			if !l.Enabled(ctx, tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && l.Enabled(ctx, tt.want-4) {
				t.Errorf("level below %s should be disabled", tt.want)
			}
		})
	}
}
