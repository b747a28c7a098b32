package api

import (
	"net/http"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
)

type topicSummary struct {
	Slug         string             `json:"slug"`
	Title        string             `json:"title"`
	Summary      string             `json:"summary,omitempty"`
	Difficulty   catalog.Difficulty `json:"difficulty,omitempty"`
	ReadTime     string             `json:"read_time,omitempty"`
	SectionCount int                `json:"section_count"`
}

type categoryResponse struct {
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Topics      []topicSummary `json:"topics"`
}

type ref struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type sectionRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type topicResponse struct {
	Category   ref                `json:"category"`
	Slug       string             `json:"slug"`
	Title      string             `json:"title"`
	Summary    string             `json:"summary"`
	Difficulty catalog.Difficulty `json:"difficulty,omitempty"`
	ReadTime   string             `json:"read_time,omitempty"`
	Sections   []sectionRef       `json:"sections"`
	Next       *ref               `json:"next,omitempty"`
}

type sectionResponse struct {
	Category ref             `json:"category"`
	Topic    ref             `json:"topic"`
	Section  catalog.Section `json:"section"`
	Next     *sectionRef     `json:"next,omitempty"`
}

func toCategoryResponse(cat catalog.Category) categoryResponse {
	resp := categoryResponse{
		Slug:        cat.Slug,
		Title:       cat.Title,
		Description: cat.Description,
		Topics:      make([]topicSummary, 0, len(cat.Topics)),
	}
	for _, t := range cat.Topics {
		resp.Topics = append(resp.Topics, topicSummary{
			Slug:         t.Slug,
			Title:        t.Title,
			Summary:      t.Summary,
			Difficulty:   t.Difficulty,
			ReadTime:     t.ReadTime,
			SectionCount: len(t.Sections),
		})
	}
	return resp
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCatalog(w, r)
	if !ok {
		return
	}
	cats := make([]categoryResponse, 0, len(c.Categories()))
	for _, cat := range c.Categories() {
		cats = append(cats, toCategoryResponse(cat))
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCatalog(w, r)
	if !ok {
		return
	}
	cat, ok := c.Category(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(cat))
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCatalog(w, r)
	if !ok {
		return
	}
	catSlug, topicSlug := r.PathValue("category"), r.PathValue("topic")
	cat, ok := c.Category(catSlug)
	if !ok {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	t, ok := c.Topic(catSlug, topicSlug)
	if !ok {
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}

	resp := topicResponse{
		Category:   ref{Slug: cat.Slug, Title: cat.Title},
		Slug:       t.Slug,
		Title:      t.Title,
		Summary:    t.Summary,
		Difficulty: t.Difficulty,
		ReadTime:   t.ReadTime,
		Sections:   make([]sectionRef, 0, len(t.Sections)),
	}
	for _, sec := range t.Sections {
		resp.Sections = append(resp.Sections, sectionRef{ID: sec.ID, Title: sec.Title})
	}
	if next, ok := c.NextTopic(catSlug, topicSlug); ok {
		resp.Next = &ref{Slug: next.Slug, Title: next.Title}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCatalog(w, r)
	if !ok {
		return
	}
	catSlug, topicSlug, id := r.PathValue("category"), r.PathValue("topic"), r.PathValue("section")
	cat, _ := c.Category(catSlug)
	t, ok := c.Topic(catSlug, topicSlug)
	if !ok {
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}
	sec, ok := c.Section(catSlug, topicSlug, id)
	if !ok {
		writeError(w, http.StatusNotFound, "section not found")
		return
	}

	resp := sectionResponse{
		Category: ref{Slug: cat.Slug, Title: cat.Title},
		Topic:    ref{Slug: t.Slug, Title: t.Title},
		Section:  sec,
	}
	if next, ok := c.NextSection(catSlug, topicSlug, id); ok {
		resp.Next = &sectionRef{ID: next.ID, Title: next.Title}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCatalog(w, r)
	if !ok {
		return
	}
	results := s.searcherFor(c).Search(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
