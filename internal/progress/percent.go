package progress

import (
	"math"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
)

// Percent returns round(100·completed/total) capped at 100, or 0 when total <= 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(completed) / float64(total)))
	return min(p, 100)
}

// Reader exposes completed ids per category. Store and Record implement it.
type Reader interface {
	CompletedTopics(category string) Set
	CompletedSections(category, topic string) Set
}

// CompletedTopics implements Reader.
func (r Record) CompletedTopics(category string) Set {
	if p, ok := r[category]; ok {
		return p.Topics.Clone()
	}
	return Set{}
}

// CompletedSections implements Reader.
func (r Record) CompletedSections(category, topic string) Set {
	if p, ok := r[category]; ok {
		return p.Sections[topic].Clone()
	}
	return Set{}
}

// Aggregator derives percentages from catalog sizes. Ids the catalog does
// not know are ignored, so stale progress never skews a percentage.
type Aggregator struct {
	catalog *catalog.Catalog
	reader  Reader
}

// NewAggregator creates an aggregator over c and r.
func NewAggregator(c *catalog.Catalog, r Reader) *Aggregator {
	return &Aggregator{catalog: c, reader: r}
}

// CategoryPercent returns the completion percentage of a category.
func (a *Aggregator) CategoryPercent(category string) int {
	return Percent(a.completedTopics(category), a.catalog.TopicCount(category))
}

// TopicPercent returns the completion percentage of a topic by sections.
func (a *Aggregator) TopicPercent(category, topic string) int {
	return Percent(a.completedSections(category, topic), a.catalog.SectionCount(category, topic))
}

// TopicSummary is the progress of one topic.
type TopicSummary struct {
	Slug              string `json:"slug"`
	Title             string `json:"title"`
	Completed         bool   `json:"completed"`
	SectionsCompleted int    `json:"sections_completed"`
	SectionsTotal     int    `json:"sections_total"`
	Percent           int    `json:"percent"`
}

// CategorySummary is the progress of one category with per-topic detail.
type CategorySummary struct {
	Slug      string         `json:"slug"`
	Title     string         `json:"title"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
	Percent   int            `json:"percent"`
	Topics    []TopicSummary `json:"topics"`
}

// CategorySummary returns progress for every topic of category in
// curriculum order. ok is false for unknown categories.
func (a *Aggregator) CategorySummary(category string) (CategorySummary, bool) {
	cat, ok := a.catalog.Category(category)
	if !ok {
		return CategorySummary{}, false
	}

	done := a.reader.CompletedTopics(category)
	sum := CategorySummary{
		Slug:   cat.Slug,
		Title:  cat.Title,
		Total:  len(cat.Topics),
		Topics: make([]TopicSummary, 0, len(cat.Topics)),
	}
	for _, t := range cat.Topics {
		secs := a.completedSections(category, t.Slug)
		ts := TopicSummary{
			Slug:              t.Slug,
			Title:             t.Title,
			Completed:         done.Has(t.Slug),
			SectionsCompleted: secs,
			SectionsTotal:     len(t.Sections),
			Percent:           Percent(secs, len(t.Sections)),
		}
		if ts.Completed {
			sum.Completed++
		}
		sum.Topics = append(sum.Topics, ts)
	}
	sum.Percent = Percent(sum.Completed, sum.Total)
	return sum, true
}

func (a *Aggregator) completedTopics(category string) int {
	n := 0
	for topic := range a.reader.CompletedTopics(category) {
		if a.catalog.HasTopic(category, topic) {
			n++
		}
	}
	return n
}

func (a *Aggregator) completedSections(category, topic string) int {
	n := 0
	for id := range a.reader.CompletedSections(category, topic) {
		if a.catalog.HasSection(category, topic, id) {
			n++
		}
	}
	return n
}
