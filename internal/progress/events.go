package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types published when progress changes.
const (
	EventTopicChanged   = "topic_changed"
	EventSectionChanged = "section_changed"
)

// Event describes a single progress change.
type Event struct {
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Topic     string    `json:"topic"`
	Section   string    `json:"section,omitempty"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// EventSink receives progress change events.
type EventSink interface {
	LogEvent(event Event) error
}

// NopEventSink ignores all events.
type NopEventSink struct{}

func (NopEventSink) LogEvent(Event) error {
	return nil
}

// MemoryEventSink stores events in memory for tests.
type MemoryEventSink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventSink() *MemoryEventSink {
	return &MemoryEventSink{
		events: []Event{},
	}
}

func (s *MemoryEventSink) LogEvent(event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()

	return nil
}

func (s *MemoryEventSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event{}, s.events...)
}

// FuncEventSink adapts a function to EventSink.
type FuncEventSink func(Event) error

func (f FuncEventSink) LogEvent(e Event) error {
	return f(e)
}

// PostgresEventSink inserts events into the progress_events table.
type PostgresEventSink struct {
	pool *pgxpool.Pool
}

func NewPostgresEventSink(pool *pgxpool.Pool) *PostgresEventSink {
	return &PostgresEventSink{pool: pool}
}

func (s *PostgresEventSink) LogEvent(event Event) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("event sink pool is nil")
	}
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	data, err := json.Marshal(map[string]any{
		"topic":     event.Topic,
		"section":   event.Section,
		"completed": event.Completed,
	})
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO progress_events (user_id, event_type, category, data, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		event.UserID,
		event.Type,
		event.Category,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("progress event logged",
		"type", event.Type,
		"user_id", event.UserID,
		"category", event.Category,
	)
	return nil
}

// publish fans an event out to every sink. Sink failures are logged only.
func publish(sinks []EventSink, event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	for _, sink := range sinks {
		if err := sink.LogEvent(event); err != nil {
			slog.Warn("progress event sink failed", "type", event.Type, "category", event.Category, "error", err)
		}
	}
}
