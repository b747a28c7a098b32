package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"resty.dev/v3"
)

// Source yields the current catalog snapshot.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
}

// Static is a Source that always returns the same snapshot.
type Static struct {
	Catalog *Catalog
}

// Load returns the wrapped catalog.
func (s Static) Load(context.Context) (*Catalog, error) {
	return s.Catalog, nil
}

// RemoteSource fetches the catalog tree from the learning content API and
// caches it until refreshed or invalidated.
type RemoteSource struct {
	client *resty.Client
	group  singleflight.Group

	mu     sync.RWMutex
	cached *Catalog
}

// NewRemoteSource creates a source reading from baseURL (e.g. https://host/api/learn).
func NewRemoteSource(baseURL string) *RemoteSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json")
	return &RemoteSource{client: client}
}

// Load returns the cached catalog, fetching it on first use.
func (r *RemoteSource) Load(ctx context.Context) (*Catalog, error) {
	r.mu.RLock()
	c := r.cached
	r.mu.RUnlock()
	if c != nil {
		return c, nil
	}
	return r.Refresh(ctx)
}

// Refresh fetches the catalog and replaces the cache. Concurrent callers
// share one request.
func (r *RemoteSource) Refresh(ctx context.Context) (*Catalog, error) {
	v, err, _ := r.group.Do("categories", func() (any, error) {
		tree, err := r.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c := New(normalizeTree(tree))

		r.mu.Lock()
		r.cached = c
		r.mu.Unlock()

		slog.Info("remote catalog refreshed", "categories", len(c.Categories()), "version", c.Version())
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

// Invalidate drops the cached catalog so the next Load fetches again.
func (r *RemoteSource) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

// Close releases the underlying HTTP client.
func (r *RemoteSource) Close() error {
	return r.client.Close()
}

func (r *RemoteSource) fetch(ctx context.Context) ([]apiCategory, error) {
	var tree []apiCategory
	resp, err := r.client.R().
		SetContext(ctx).
		SetResult(&tree).
		Get("/categories/")
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching categories: HTTP %d", resp.StatusCode())
	}
	return tree, nil
}

type apiSubtopic struct {
	ID      flexID `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type apiTopic struct {
	ID          flexID        `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	Subtopics   []apiSubtopic `json:"subtopics"`
}

type apiSubject struct {
	Name   string     `json:"name"`
	Slug   string     `json:"slug"`
	Topics []apiTopic `json:"topics"`
}

type apiCategory struct {
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	Subjects    []apiSubject `json:"subjects"`
}

// flexID accepts ids sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// normalizeTree flattens subjects: topics are aggregated across a category's
// subjects with the first occurrence of a slug winning.
func normalizeTree(tree []apiCategory) []Category {
	cats := make([]Category, 0, len(tree))
	for _, ac := range tree {
		cat := Category{Slug: ac.Slug, Title: ac.Name, Description: ac.Description}
		seen := make(map[string]bool)
		for _, subj := range ac.Subjects {
			for _, at := range subj.Topics {
				if seen[at.Slug] {
					continue
				}
				seen[at.Slug] = true
				cat.Topics = append(cat.Topics, normalizeTopic(at))
			}
		}
		cats = append(cats, cat)
	}
	return cats
}

func normalizeTopic(at apiTopic) Topic {
	t := Topic{
		Slug:     at.Slug,
		Title:    at.Title,
		Summary:  at.Description,
		ReadTime: readTime(len(at.Subtopics)),
		Sections: make([]Section, 0, len(at.Subtopics)),
	}
	for _, sub := range at.Subtopics {
		t.Sections = append(t.Sections, Section{
			ID:      string(sub.ID),
			Title:   sub.Title,
			Content: PlainText(sub.Content),
		})
	}
	return t
}

// readTime estimates four minutes per subtopic.
func readTime(subtopics int) string {
	if subtopics == 0 {
		return ""
	}
	minutes := int(math.Max(1, math.Round(float64(subtopics)*4)))
	return fmt.Sprintf("%d min", minutes)
}

// OpenSource picks the catalog source: remoteURL when set, else the YAML
// directory at dir, else the builtin catalog.
func OpenSource(remoteURL, dir string) (Source, error) {
	switch {
	case remoteURL != "":
		return NewRemoteSource(remoteURL), nil
	case dir != "":
		c, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		return Static{Catalog: c}, nil
	default:
		return Static{Catalog: Builtin()}, nil
	}
}
