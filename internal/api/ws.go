package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
)

const (
	subscriberBuffer = 16
	wsWriteTimeout   = 5 * time.Second
)

// Hub fans progress events out to per-user subscribers. It implements
// progress.EventSink. Slow subscribers miss events rather than block writers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan progress.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan progress.Event]struct{})}
}

// LogEvent delivers e to every subscriber of e.UserID.
func (h *Hub) LogEvent(e progress.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[e.UserID] {
		select {
		case ch <- e:
		default:
			slog.Debug("dropping progress event for slow subscriber", "user_id", e.UserID)
		}
	}
	return nil
}

// Subscribe registers a subscriber for user. The returned func unsubscribes.
func (h *Hub) Subscribe(user string) (<-chan progress.Event, func()) {
	ch := make(chan progress.Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[user] == nil {
		h.subs[user] = make(map[chan progress.Event]struct{})
	}
	h.subs[user][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[user], ch)
			if len(h.subs[user]) == 0 {
				delete(h.subs, user)
			}
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscribers for user.
func (h *Hub) Subscribers(user string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[user])
}

// handleEvents streams the caller's progress events over a WebSocket.
// Browsers cannot set headers on the upgrade, so ?user= is accepted too.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if q := r.URL.Query().Get("user"); q != "" && user == defaultUser {
		user = q
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer c.CloseNow()

	events, unsubscribe := s.hub.Subscribe(user)
	defer unsubscribe()

	ctx := c.CloseRead(r.Context())
	slog.Debug("progress subscriber connected", "user_id", user)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("progress subscriber disconnected", "user_id", user)
			return
		case e := <-events:
			if err := writeEvent(ctx, c, e); err != nil {
				slog.Debug("progress event write failed", "user_id", user, "error", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, c *websocket.Conn, e progress.Event) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, e)
}
