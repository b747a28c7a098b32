package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/reading"
)

const completionTimeout = 5 * time.Second

type readingRequest struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"` // seconds
	Scroll   int     `json:"scroll"`
}

// trackerFor returns the reading tracker for user, creating it on first use.
// Completions are written to the repository.
func (s *Server) trackerFor(user string) *reading.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trackers[user]; ok {
		return t
	}

	completer := reading.CompleterFunc(func(category, topic string) {
		ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
		defer cancel()

		completed := true
		if _, err := s.repo.SetTopic(ctx, user, category, topic, &completed); err != nil {
			slog.Warn("reading completion failed", "category", category, "topic", topic, "error", err)
			return
		}
		s.publish(progress.Event{
			UserID:    user,
			Type:      progress.EventTopicChanged,
			Category:  category,
			Topic:     topic,
			Completed: true,
		})
	})
	t := reading.NewTracker(s.blob, reading.StorageKey+":"+user, completer)
	s.trackers[user] = t
	return t
}

func (s *Server) handleRecordReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	visit := reading.Visit{
		Path:     req.Path,
		At:       time.Now(),
		Duration: time.Duration(req.Duration * float64(time.Second)),
		Scroll:   req.Scroll,
	}
	if err := s.trackerFor(userID(r)).Record(r.Context(), visit); err != nil {
		slog.Warn("reading record failed", "path", req.Path, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReadingSummary(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	sum := s.trackerFor(userID(r)).Summary(r.Context(), path, time.Now())
	writeJSON(w, http.StatusOK, sum)
}
