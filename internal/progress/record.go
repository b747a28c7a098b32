// Package progress tracks which topics and sections a learner has completed,
// persists that record, mirrors writes to a remote progress service and
// derives completion percentages.
package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// StorageKey is the blob key the whole progress record is persisted under.
const StorageKey = "gn_progress_v1"

// Set is an unordered set of ids. It encodes as a sorted JSON array.
type Set map[string]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set is empty.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ids.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the ids in lexical order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy. Cloning nil yields an empty set.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = NewSet(ids...)
	return nil
}

// CategoryProgress is the completion state of one category.
type CategoryProgress struct {
	Topics   Set            `json:"topics"`
	Sections map[string]Set `json:"sections"`
}

// NewCategoryProgress returns an empty category record.
func NewCategoryProgress() *CategoryProgress {
	return &CategoryProgress{Topics: Set{}, Sections: map[string]Set{}}
}

// Clone returns a deep copy.
func (p *CategoryProgress) Clone() *CategoryProgress {
	c := NewCategoryProgress()
	if p == nil {
		return c
	}
	c.Topics = p.Topics.Clone()
	for topic, secs := range p.Sections {
		c.Sections[topic] = secs.Clone()
	}
	return c
}

func (p *CategoryProgress) ensure() {
	if p.Topics == nil {
		p.Topics = Set{}
	}
	if p.Sections == nil {
		p.Sections = map[string]Set{}
	}
}

// SetTopic marks a topic complete or incomplete. Marking it incomplete also
// clears its completed sections.
func (p *CategoryProgress) SetTopic(topic string, done bool) {
	p.ensure()
	if done {
		p.Topics[topic] = struct{}{}
		return
	}
	delete(p.Topics, topic)
	delete(p.Sections, topic)
}

// ToggleTopic flips a topic and returns its new completion state.
func (p *CategoryProgress) ToggleTopic(topic string) bool {
	done := !p.Topics.Has(topic)
	p.SetTopic(topic, done)
	return done
}

// SetSection marks a section complete or incomplete. When total > 0 and the
// topic's completed-section count reaches total the topic is promoted to
// complete. Un-marking a section never demotes the topic.
func (p *CategoryProgress) SetSection(topic, id string, done bool, total int) {
	p.ensure()
	secs := p.Sections[topic]
	if secs == nil {
		secs = Set{}
		p.Sections[topic] = secs
	}
	if done {
		secs[id] = struct{}{}
	} else {
		delete(secs, id)
	}
	if total > 0 && secs.Len() >= total {
		p.Topics[topic] = struct{}{}
	}
}

// ToggleSection flips a section and returns its new completion state.
func (p *CategoryProgress) ToggleSection(topic, id string, total int) bool {
	done := !p.Sections[topic].Has(id)
	p.SetSection(topic, id, done, total)
	return done
}

// Record is the full progress record keyed by category slug.
type Record map[string]*CategoryProgress

// Category returns the record for a category, creating it when absent.
func (r Record) Category(slug string) *CategoryProgress {
	p, ok := r[slug]
	if !ok || p == nil {
		p = NewCategoryProgress()
		r[slug] = p
	}
	p.ensure()
	return p
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for slug, p := range r {
		c[slug] = p.Clone()
	}
	return c
}

// storedEntry is one category as found on disk: either the current object
// shape or the legacy bare array of completed topic slugs.
type storedEntry struct {
	legacy  []string
	current *CategoryProgress
}

func (e *storedEntry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) > 0 && b[0] == '[':
		return json.Unmarshal(b, &e.legacy)
	case bytes.Equal(b, []byte("null")):
		e.current = NewCategoryProgress()
		return nil
	default:
		e.current = NewCategoryProgress()
		return json.Unmarshal(b, e.current)
	}
}

func (e storedEntry) progress() (*CategoryProgress, bool) {
	if e.current != nil {
		e.current.ensure()
		return e.current, false
	}
	p := NewCategoryProgress()
	for _, topic := range e.legacy {
		p.Topics[topic] = struct{}{}
	}
	return p, true
}

// DecodeRecord parses a persisted record, migrating legacy array entries to
// the current shape. migrated reports whether any legacy entry was found.
func DecodeRecord(data []byte) (rec Record, migrated bool, err error) {
	rec = Record{}
	if len(bytes.TrimSpace(data)) == 0 {
		return rec, false, nil
	}

	var raw map[string]storedEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("decode progress record: %w", err)
	}
	for slug, entry := range raw {
		p, legacy := entry.progress()
		rec[slug] = p
		migrated = migrated || legacy
	}
	return rec, migrated, nil
}

// EncodeRecord serialises a record in the current shape.
func EncodeRecord(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode progress record: %w", err)
	}
	return data, nil
}
