package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/report"
)

const maxBodyBytes = 1 << 16

type progressResponse struct {
	Topics   progress.Set            `json:"topics"`
	Sections map[string]progress.Set `json:"sections"`
	Percent  int                     `json:"percent"`
}

func toProgressResponse(c *catalog.Catalog, category string, p *progress.CategoryProgress) progressResponse {
	agg := progress.NewAggregator(c, progress.Record{category: p})
	return progressResponse{
		Topics:   p.Topics,
		Sections: p.Sections,
		Percent:  agg.CategoryPercent(category),
	}
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCatalog(w, r)
	if !ok {
		return
	}
	category := r.PathValue("category")
	p, err := s.repo.Get(r.Context(), userID(r), category)
	if err != nil {
		slog.Error("progress read failed", "category", category, "error", err)
		writeError(w, http.StatusInternalServerError, "progress unavailable")
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(c, category, p))
}

func (s *Server) handleToggleTopic(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCatalog(w, r)
	if !ok {
		return
	}
	req, err := decodeToggle(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, category, topic := userID(r), r.PathValue("category"), r.PathValue("topic")
	p, err := s.repo.SetTopic(r.Context(), user, category, topic, req.Completed)
	if err != nil {
		slog.Error("progress write failed", "category", category, "topic", topic, "error", err)
		writeError(w, http.StatusInternalServerError, "progress unavailable")
		return
	}

	s.publish(progress.Event{
		UserID:    user,
		Type:      progress.EventTopicChanged,
		Category:  category,
		Topic:     topic,
		Completed: p.Topics.Has(topic),
	})
	writeJSON(w, http.StatusOK, toProgressResponse(c, category, p))
}

func (s *Server) handleToggleSection(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCatalog(w, r)
	if !ok {
		return
	}
	req, err := decodeToggle(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := userID(r)
	category, topic, section := r.PathValue("category"), r.PathValue("topic"), r.PathValue("section")
	// Without a total the topic size is unknown and no promotion happens,
	// matching the client store.
	total := req.Total

	before, err := s.repo.Get(r.Context(), user, category)
	if err != nil {
		slog.Error("progress read failed", "category", category, "error", err)
		writeError(w, http.StatusInternalServerError, "progress unavailable")
		return
	}
	p, err := s.repo.SetSection(r.Context(), user, category, topic, section, req.Completed, total)
	if err != nil {
		slog.Error("progress write failed", "category", category, "topic", topic, "section", section, "error", err)
		writeError(w, http.StatusInternalServerError, "progress unavailable")
		return
	}

	s.publish(progress.Event{
		UserID:    user,
		Type:      progress.EventSectionChanged,
		Category:  category,
		Topic:     topic,
		Section:   section,
		Completed: p.Sections[topic].Has(section),
	})
	if !before.Topics.Has(topic) && p.Topics.Has(topic) {
		s.publish(progress.Event{
			UserID:    user,
			Type:      progress.EventTopicChanged,
			Category:  category,
			Topic:     topic,
			Completed: true,
		})
	}
	writeJSON(w, http.StatusOK, toProgressResponse(c, category, p))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCatalog(w, r)
	if !ok {
		return
	}
	rec, err := s.repo.All(r.Context(), userID(r))
	if err != nil {
		slog.Error("progress read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "progress unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	if err := report.WriteProgressWorkbook(w, c, rec); err != nil {
		slog.Error("report export failed", "error", err)
	}
}

// decodeToggle reads an optional ToggleRequest body. An empty body toggles.
func decodeToggle(r *http.Request) (progress.ToggleRequest, error) {
	var req progress.ToggleRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, errors.New("invalid request body")
	}
	if req.Total < 0 {
		return req, errors.New("total must not be negative")
	}
	return req, nil
}

func (s *Server) publish(e progress.Event) {
	for _, sink := range s.sinks {
		if err := sink.LogEvent(e); err != nil {
			slog.Warn("progress event sink failed", "type", e.Type, "category", e.Category, "error", err)
		}
	}
}
