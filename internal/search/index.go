// Package search provides substring search over the tutorial catalog.
package search

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
)

// DefaultMaxResults caps result lists when Options.MaxResults is unset.
const DefaultMaxResults = 50

// Entry is a single deep-linkable search result.
type Entry struct {
	Title string `json:"title"`
	To    string `json:"to"`
	Meta  string `json:"meta"`
}

// Options configures an Index.
type Options struct {
	MaxResults int
}

type document struct {
	entry     Entry
	haystacks []string
}

// Index is an immutable search index built from one catalog snapshot.
// It is safe for concurrent use.
type Index struct {
	docs       []document
	maxResults int
	version    string
}

// NewIndex derives the flat document list from c in traversal order:
// category, then each topic followed by its sections.
func NewIndex(c *catalog.Catalog, opts Options) *Index {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	idx := &Index{maxResults: maxResults, version: c.Version()}
	for _, cat := range c.Categories() {
		idx.add(categoryEntry(cat), cat.Title)
		for _, t := range cat.Topics {
			idx.add(topicEntry(cat, t), t.Title, t.Summary)
			for _, s := range t.Sections {
				idx.add(sectionEntry(cat, t, s), s.Title, s.Content)
			}
		}
	}
	return idx
}

func (idx *Index) add(e Entry, fields ...string) {
	haystacks := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			haystacks = append(haystacks, fold(f))
		}
	}
	idx.docs = append(idx.docs, document{entry: e, haystacks: haystacks})
}

// Version identifies the catalog snapshot the index was built from.
func (idx *Index) Version() string {
	return idx.version
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.docs)
}

// Search returns entries whose fields contain query, case-insensitively,
// in traversal order, unique by To and capped at the configured maximum.
// A blank query returns no results.
func (idx *Index) Search(query string) []Entry {
	q := Normalize(query)
	if q == "" {
		return []Entry{}
	}

	matches := lo.FilterMap(idx.docs, func(d document, _ int) (Entry, bool) {
		return d.entry, lo.SomeBy(d.haystacks, func(h string) bool {
			return strings.Contains(h, q)
		})
	})
	matches = lo.UniqBy(matches, func(e Entry) string { return e.To })

	if len(matches) > idx.maxResults {
		matches = matches[:idx.maxResults]
	}
	return matches
}

// Normalize trims and case-folds a query the way Search does.
func Normalize(query string) string {
	return fold(strings.TrimSpace(query))
}

// fold builds a fresh Caser per call; a Caser is not safe for concurrent use.
func fold(s string) string {
	return cases.Fold().String(s)
}

func categoryEntry(cat catalog.Category) Entry {
	first := "intro"
	if len(cat.Topics) > 0 {
		first = cat.Topics[0].Slug
	}
	return Entry{
		Title: cat.Title,
		To:    fmt.Sprintf("/tutorials/%s/%s", cat.Slug, first),
		Meta:  "Category",
	}
}

func topicEntry(cat catalog.Category, t catalog.Topic) Entry {
	parts := lo.Compact([]string{string(t.Difficulty), t.ReadTime})
	meta := strings.Join(parts, " • ")
	if meta == "" {
		meta = "Topic"
	}
	return Entry{
		Title: fmt.Sprintf("%s — %s", t.Title, cat.Title),
		To:    fmt.Sprintf("/tutorials/%s/%s", cat.Slug, t.Slug),
		Meta:  meta,
	}
}

func sectionEntry(cat catalog.Category, t catalog.Topic, s catalog.Section) Entry {
	return Entry{
		Title: fmt.Sprintf("%s — %s", s.Title, t.Title),
		To:    fmt.Sprintf("/tutorials/%s/%s/%s", cat.Slug, t.Slug, s.ID),
		Meta:  fmt.Sprintf("Section • %s", cat.Title),
	}
}
