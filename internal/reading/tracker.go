// Package reading records article visits and derives reading analytics.
// Deep enough reads of a tutorial page mark its topic complete.
package reading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/blob"
)

const (
	// StorageKey is the blob key the visit log is persisted under.
	StorageKey = "gn_reading_stats"
	// MaxVisits bounds the persisted log; older visits are dropped first.
	MaxVisits = 500
	// CompletionScroll is the scroll depth (percent) that completes a topic.
	CompletionScroll = 60
	// Window is the look-back period of Summary.
	Window = 30 * 24 * time.Hour
)

// Visit is one reading session of a page.
type Visit struct {
	Path     string        `json:"path"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
	Scroll   int           `json:"scroll"`
}

// storedVisit is the persisted shape: unix millis and whole seconds.
type storedVisit struct {
	Path   string `json:"path"`
	TS     int64  `json:"ts"`
	Dur    int    `json:"dur"`
	Scroll int    `json:"scroll"`
}

func (s storedVisit) visit() Visit {
	return Visit{
		Path:     s.Path,
		At:       time.UnixMilli(s.TS),
		Duration: time.Duration(s.Dur) * time.Second,
		Scroll:   s.Scroll,
	}
}

// Completer marks topics complete. progress.Store satisfies it.
type Completer interface {
	MarkTopicComplete(category, topic string)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(category, topic string)

func (f CompleterFunc) MarkTopicComplete(category, topic string) {
	f(category, topic)
}

// Tracker appends visits to a blob-backed log.
type Tracker struct {
	store     blob.Store
	key       string
	completer Completer

	mu sync.Mutex
}

// NewTracker creates a tracker persisting under key (StorageKey when empty).
// completer may be nil.
func NewTracker(store blob.Store, key string, completer Completer) *Tracker {
	if key == "" {
		key = StorageKey
	}
	return &Tracker{store: store, key: key, completer: completer}
}

// Record appends v to the log and, for tutorial topic pages read to at
// least CompletionScroll percent, marks the topic complete.
func (t *Tracker) Record(ctx context.Context, v Visit) error {
	if v.At.IsZero() {
		v.At = time.Now()
	}
	sv := storedVisit{
		Path:   v.Path,
		TS:     v.At.UnixMilli(),
		Dur:    int(math.Round(math.Max(0, v.Duration.Seconds()))),
		Scroll: min(100, max(0, v.Scroll)),
	}

	t.mu.Lock()
	stats := t.read(ctx)
	stats = append(stats, sv)
	if len(stats) > MaxVisits {
		stats = stats[len(stats)-MaxVisits:]
	}
	err := t.write(ctx, stats)
	t.mu.Unlock()

	if category, topic, ok := TopicFromPath(v.Path); ok && sv.Scroll >= CompletionScroll && t.completer != nil {
		t.completer.MarkTopicComplete(category, topic)
		slog.Debug("topic completed by reading", "category", category, "topic", topic, "scroll", sv.Scroll)
	}
	return err
}

// Visits returns the persisted log, oldest first.
func (t *Tracker) Visits(ctx context.Context) []Visit {
	t.mu.Lock()
	stats := t.read(ctx)
	t.mu.Unlock()

	visits := make([]Visit, 0, len(stats))
	for _, s := range stats {
		visits = append(visits, s.visit())
	}
	return visits
}

// Summary aggregates reading activity for pages under path.
type Summary struct {
	Count             int           `json:"count"`
	AvgDuration       time.Duration `json:"avg_duration"`
	AvgScroll         int           `json:"avg_scroll"`
	CompletedArticles int           `json:"completed_articles"`
	Last              *Visit        `json:"last,omitempty"`
}

// Summary computes analytics over the Window ending at now. Count and the
// averages cover visits whose path starts with path; CompletedArticles
// counts distinct pages read to CompletionScroll; Last is the latest visit
// of exactly path.
func (t *Tracker) Summary(ctx context.Context, path string, now time.Time) Summary {
	t.mu.Lock()
	stats := t.read(ctx)
	t.mu.Unlock()

	var sum Summary
	var totalDur, totalScroll int
	completed := make(map[string]struct{})
	cutoff := now.Add(-Window).UnixMilli()

	for _, s := range stats {
		if stripFragment(s.Path) == path {
			v := s.visit()
			sum.Last = &v
		}
		if s.TS <= cutoff {
			continue
		}
		if s.Scroll >= CompletionScroll {
			completed[stripFragment(s.Path)] = struct{}{}
		}
		if strings.HasPrefix(s.Path, path) {
			sum.Count++
			totalDur += s.Dur
			totalScroll += s.Scroll
		}
	}

	if sum.Count > 0 {
		avg := math.Round(float64(totalDur) / float64(sum.Count))
		sum.AvgDuration = time.Duration(avg) * time.Second
		sum.AvgScroll = int(math.Round(float64(totalScroll) / float64(sum.Count)))
	}
	sum.CompletedArticles = len(completed)
	return sum
}

// TopicFromPath extracts category and topic from /tutorials/{category}/{topic}[/...].
func TopicFromPath(path string) (category, topic string, ok bool) {
	path = stripFragment(path)
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 3 || parts[0] != "tutorials" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func stripFragment(path string) string {
	if i := strings.IndexByte(path, '#'); i >= 0 {
		return path[:i]
	}
	return path
}

// read loads the log. Missing or unreadable logs read as empty.
func (t *Tracker) read(ctx context.Context) []storedVisit {
	data, err := t.store.Read(ctx, t.key)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			slog.Warn("reading stats load failed", "key", t.key, "error", err)
		}
		return nil
	}
	var stats []storedVisit
	if err := json.Unmarshal(data, &stats); err != nil {
		slog.Warn("reading stats unreadable, starting over", "key", t.key, "error", err)
		return nil
	}
	return stats
}

func (t *Tracker) write(ctx context.Context, stats []storedVisit) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode reading stats: %w", err)
	}
	if err := t.store.Write(ctx, t.key, data); err != nil {
		return fmt.Errorf("write reading stats: %w", err)
	}
	return nil
}
