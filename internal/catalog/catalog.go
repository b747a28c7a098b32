// Package catalog holds the read-only Category → Topic → Section tutorial tree
// and the sources it can be built from.
package catalog

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"golang.org/x/crypto/blake2b"
)

type topicKey struct {
	category, topic string
}

type sectionKey struct {
	category, topic, section string
}

// Catalog is an immutable, ordered snapshot of the tutorial tree.
// It is safe for concurrent use.
type Catalog struct {
	categories []Category
	byCategory map[string]int
	byTopic    map[topicKey]int
	bySection  map[sectionKey]int
	version    string
}

// New builds a catalog snapshot. Duplicate category slugs keep the first
// occurrence, as do duplicate topic slugs within a category and duplicate
// section ids within a topic.
func New(categories []Category) *Catalog {
	c := &Catalog{
		byCategory: make(map[string]int),
		byTopic:    make(map[topicKey]int),
		bySection:  make(map[sectionKey]int),
	}

	for _, cat := range categories {
		if _, dup := c.byCategory[cat.Slug]; dup {
			slog.Warn("duplicate category slug ignored", "category", cat.Slug)
			continue
		}

		kept := Category{Slug: cat.Slug, Title: cat.Title, Description: cat.Description}
		for _, topic := range cat.Topics {
			tk := topicKey{cat.Slug, topic.Slug}
			if _, dup := c.byTopic[tk]; dup {
				slog.Warn("duplicate topic slug ignored", "category", cat.Slug, "topic", topic.Slug)
				continue
			}

			keptTopic := topic
			keptTopic.Sections = make([]Section, 0, len(topic.Sections))
			for _, s := range topic.Sections {
				sk := sectionKey{cat.Slug, topic.Slug, s.ID}
				if _, dup := c.bySection[sk]; dup {
					slog.Warn("duplicate section id ignored", "category", cat.Slug, "topic", topic.Slug, "section", s.ID)
					continue
				}
				c.bySection[sk] = len(keptTopic.Sections)
				keptTopic.Sections = append(keptTopic.Sections, s)
			}

			c.byTopic[tk] = len(kept.Topics)
			kept.Topics = append(kept.Topics, keptTopic)
		}

		c.byCategory[cat.Slug] = len(c.categories)
		c.categories = append(c.categories, kept)
	}

	c.version = digest(c.categories)
	return c
}

// Categories returns all categories in curriculum order.
// The returned slice must not be modified.
func (c *Catalog) Categories() []Category {
	return c.categories
}

// Category returns the category with the given slug.
func (c *Catalog) Category(slug string) (Category, bool) {
	i, ok := c.byCategory[slug]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// Topic returns a topic by category and topic slug.
func (c *Catalog) Topic(category, topic string) (Topic, bool) {
	ci, ok := c.byCategory[category]
	if !ok {
		return Topic{}, false
	}
	ti, ok := c.byTopic[topicKey{category, topic}]
	if !ok {
		return Topic{}, false
	}
	return c.categories[ci].Topics[ti], true
}

// Section returns a section by its full path.
func (c *Catalog) Section(category, topic, id string) (Section, bool) {
	t, ok := c.Topic(category, topic)
	if !ok {
		return Section{}, false
	}
	si, ok := c.bySection[sectionKey{category, topic, id}]
	if !ok {
		return Section{}, false
	}
	return t.Sections[si], true
}

// TopicCount returns the number of topics in a category, 0 if unknown.
func (c *Catalog) TopicCount(category string) int {
	cat, ok := c.Category(category)
	if !ok {
		return 0
	}
	return len(cat.Topics)
}

// SectionCount returns the number of sections in a topic, 0 if unknown.
func (c *Catalog) SectionCount(category, topic string) int {
	t, ok := c.Topic(category, topic)
	if !ok {
		return 0
	}
	return len(t.Sections)
}

// HasTopic reports whether the topic exists in the catalog.
func (c *Catalog) HasTopic(category, topic string) bool {
	_, ok := c.byTopic[topicKey{category, topic}]
	return ok
}

// HasSection reports whether the section exists in the catalog.
func (c *Catalog) HasSection(category, topic, id string) bool {
	_, ok := c.bySection[sectionKey{category, topic, id}]
	return ok
}

// NextTopic returns the topic following the given one in curriculum order.
func (c *Catalog) NextTopic(category, topic string) (Topic, bool) {
	ci, ok := c.byCategory[category]
	if !ok {
		return Topic{}, false
	}
	ti, ok := c.byTopic[topicKey{category, topic}]
	if !ok || ti+1 >= len(c.categories[ci].Topics) {
		return Topic{}, false
	}
	return c.categories[ci].Topics[ti+1], true
}

// NextSection returns the section following the given one within its topic.
func (c *Catalog) NextSection(category, topic, id string) (Section, bool) {
	t, ok := c.Topic(category, topic)
	if !ok {
		return Section{}, false
	}
	si, ok := c.bySection[sectionKey{category, topic, id}]
	if !ok || si+1 >= len(t.Sections) {
		return Section{}, false
	}
	return t.Sections[si+1], true
}

// Version is a stable content digest of the snapshot. Two catalogs with the
// same content share a version.
func (c *Catalog) Version() string {
	return c.version
}

func digest(categories []Category) string {
	data, err := json.Marshal(categories)
	if err != nil {
		// Category only holds strings and slices; Marshal cannot fail.
		return ""
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
