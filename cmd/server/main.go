package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/api"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/blob"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/cache"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/config"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/database"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app holds the API server and the connections it was built on.
type app struct {
	server  *api.Server
	closers []func()
}

// newApp wires the API from cfg. Postgres backs progress when configured,
// otherwise progress lives in memory. The cache backs search results and
// reading analytics.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	source, err := catalog.OpenSource(cfg.Catalog.RemoteURL, cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if rs, ok := source.(*catalog.RemoteSource); ok {
		a.closers = append(a.closers, func() { rs.Close() })
	}

	opts := api.Options{
		Catalog:          source,
		Repository:       progress.NewMemoryRepository(),
		SearchMaxResults: cfg.Search.MaxResults,
		SearchCacheTTL:   cfg.Search.CacheTTL,
	}

	if cfg.HasDatabase() {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		repo, err := progress.NewPostgresRepository(db.Pool)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts.Repository = repo
		opts.Sinks = append(opts.Sinks, progress.NewPostgresEventSink(db.Pool))
		opts.Checks = append(opts.Checks, api.HealthCheck{Name: "database", Check: db.HealthCheck})
		slog.Info("progress backed by postgres")
	}

	if cfg.HasCache() {
		c, err := cache.New(ctx, cfg.Cache)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		a.closers = append(a.closers, func() { c.Close() })

		opts.Blob = blob.NewRedisStore(c.Client, cache.Key("reading")+":")
		if cfg.Search.CacheEnabled {
			opts.SearchCache = c.Client
		}
		opts.Checks = append(opts.Checks, api.HealthCheck{Name: "cache", Check: c.HealthCheck})
	}

	// Warm the catalog so a bad remote fails readiness instead of every request.
	opts.Checks = append(opts.Checks, api.HealthCheck{Name: "catalog", Check: func(ctx context.Context) error {
		_, err := source.Load(ctx)
		return err
	}})

	a.server = api.New(opts)
	return a, nil
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newLogger builds the default logger from LEARN_LOG_LEVEL and LEARN_LOG_FORMAT.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
