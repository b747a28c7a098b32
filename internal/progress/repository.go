package progress

import (
	"context"
	"sync"
)

// Repository is the server-side source of truth behind the progress API.
// A nil completed flag toggles the current state.
type Repository interface {
	Get(ctx context.Context, userID, category string) (*CategoryProgress, error)
	All(ctx context.Context, userID string) (Record, error)
	SetTopic(ctx context.Context, userID, category, topic string, completed *bool) (*CategoryProgress, error)
	SetSection(ctx context.Context, userID, category, topic, section string, completed *bool, total int) (*CategoryProgress, error)
}

// applyTopic applies a topic write to p.
func applyTopic(p *CategoryProgress, topic string, completed *bool) {
	if completed == nil {
		p.ToggleTopic(topic)
		return
	}
	p.SetTopic(topic, *completed)
}

// applySection applies a section write to p.
func applySection(p *CategoryProgress, topic, section string, completed *bool, total int) {
	if completed == nil {
		p.ToggleSection(topic, section, total)
		return
	}
	p.SetSection(topic, section, *completed, total)
}

// MemoryRepository keeps progress in memory. Useful for tests and single-node dev.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]Record)}
}

func (r *MemoryRepository) Get(_ context.Context, userID, category string) (*CategoryProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[userID][category].Clone(), nil
}

func (r *MemoryRepository) All(_ context.Context, userID string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[userID].Clone(), nil
}

func (r *MemoryRepository) SetTopic(_ context.Context, userID, category, topic string, completed *bool) (*CategoryProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.record(userID).Category(category)
	applyTopic(p, topic, completed)
	return p.Clone(), nil
}

func (r *MemoryRepository) SetSection(_ context.Context, userID, category, topic, section string, completed *bool, total int) (*CategoryProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.record(userID).Category(category)
	applySection(p, topic, section, completed, total)
	return p.Clone(), nil
}

func (r *MemoryRepository) record(userID string) Record {
	rec, ok := r.users[userID]
	if !ok {
		rec = Record{}
		r.users[userID] = rec
	}
	return rec
}
