// Package api exposes the catalog, search, progress and reading analytics
// over HTTP.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/blob"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/reading"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/search"
)

const defaultUser = "anonymous"

// HealthCheck is a named dependency probe used by /readyz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options wires the server's dependencies. Catalog and Repository are required.
type Options struct {
	Catalog    catalog.Source
	Repository progress.Repository
	// Blob stores reading analytics. Defaults to memory.
	Blob   blob.Store
	Sinks  []progress.EventSink
	Checks []HealthCheck

	SearchMaxResults int
	SearchCache      *redis.Client
	SearchCacheTTL   time.Duration
}

// Server serves the learn API.
type Server struct {
	catalogs catalog.Source
	repo     progress.Repository
	blob     blob.Store
	hub      *Hub
	sinks    []progress.EventSink
	checks   []HealthCheck

	searchOpts  search.Options
	searchCache *redis.Client
	searchTTL   time.Duration

	mu       sync.Mutex
	searcher *search.CachedSearcher
	trackers map[string]*reading.Tracker
}

// New creates a server. Progress events go to opts.Sinks and to the
// WebSocket hub.
func New(opts Options) *Server {
	if opts.Blob == nil {
		opts.Blob = blob.NewMemoryStore()
	}
	hub := NewHub()
	return &Server{
		catalogs:    opts.Catalog,
		repo:        opts.Repository,
		blob:        opts.Blob,
		hub:         hub,
		sinks:       append([]progress.EventSink{hub}, opts.Sinks...),
		checks:      opts.Checks,
		searchOpts:  search.Options{MaxResults: opts.SearchMaxResults},
		searchCache: opts.SearchCache,
		searchTTL:   opts.SearchCacheTTL,
		trackers:    make(map[string]*reading.Tracker),
	}
}

// Hub returns the event hub feeding WebSocket subscribers.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/learn/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/learn/categories/{category}", s.handleGetCategory)
	mux.HandleFunc("GET /api/learn/categories/{category}/topics/{topic}", s.handleGetTopic)
	mux.HandleFunc("GET /api/learn/categories/{category}/topics/{topic}/sections/{section}", s.handleGetSection)
	mux.HandleFunc("GET /api/learn/search", s.handleSearch)

	mux.HandleFunc("GET /api/learn/progress/events", s.handleEvents)
	mux.HandleFunc("GET /api/learn/progress/report.xlsx", s.handleReport)
	mux.HandleFunc("GET /api/learn/progress/{category}", s.handleGetProgress)
	mux.HandleFunc("POST /api/learn/progress/{category}/topics/{topic}/toggle", s.handleToggleTopic)
	mux.HandleFunc("POST /api/learn/progress/{category}/topics/{topic}/sections/{section}/toggle", s.handleToggleSection)

	mux.HandleFunc("POST /api/learn/reading", s.handleRecordReading)
	mux.HandleFunc("GET /api/learn/reading", s.handleReadingSummary)

	return logRequests(mux)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", c.Name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  c.Name + ": " + err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// loadCatalog returns the current catalog or writes a 500.
func (s *Server) loadCatalog(w http.ResponseWriter, r *http.Request) (*catalog.Catalog, bool) {
	c, err := s.catalogs.Load(r.Context())
	if err != nil {
		slog.Error("catalog load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return nil, false
	}
	return c, true
}

// searcherFor returns a searcher for c, rebuilding the index when the
// catalog version changes.
func (s *Server) searcherFor(c *catalog.Catalog) *search.CachedSearcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searcher == nil || s.searcher.Index().Version() != c.Version() {
		idx := search.NewIndex(c, s.searchOpts)
		s.searcher = search.NewCachedSearcher(idx, s.searchCache, s.searchTTL)
		slog.Info("search index built", "entries", idx.Len(), "version", c.Version())
	}
	return s.searcher
}

func userID(r *http.Request) string {
	if u := r.Header.Get(progress.UserHeader); u != "" {
		return u
	}
	return defaultUser
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is required by the WebSocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
