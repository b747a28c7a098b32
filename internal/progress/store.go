package progress

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/blob"
)

const persistTimeout = 5 * time.Second

// Options configures a Store.
type Options struct {
	// Blob persists the record. Defaults to an in-memory store.
	Blob blob.Store
	// Remote, when set, receives every write and is polled for fresh state.
	Remote Remote
	UserID string
	Sinks  []EventSink

	SyncPolicy      SyncPolicy
	SyncAttempts    int
	RetryDelay      time.Duration
	RefreshInterval time.Duration
	OnSyncError     func(Op, error)
}

// Store is the client-side progress store. Reads are served from an
// in-memory cache and never block on I/O; writes update the cache first,
// then persist locally and queue a remote write.
type Store struct {
	blob            blob.Store
	remote          Remote
	outbox          *Outbox
	userID          string
	sinks           []EventSink
	refreshInterval time.Duration
	onSyncError     func(Op, error)

	// generation changes on every local write and every settled remote
	// write of a category. A refresh is only applied if it is unchanged
	// from before the fetch.
	mu          sync.RWMutex
	record      Record
	generation  map[string]uint64
	lastRefresh map[string]time.Time
	seq         uint64

	persistMu    sync.Mutex
	persistedSeq uint64

	refreshGroup singleflight.Group
	refreshWG    sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewStore loads the persisted record and starts remote sync if configured.
// A missing or unreadable record starts the store empty.
func NewStore(ctx context.Context, opts Options) *Store {
	if opts.Blob == nil {
		opts.Blob = blob.NewMemoryStore()
	}
	if opts.UserID == "" {
		opts.UserID = "anonymous"
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	s := &Store{
		blob:            opts.Blob,
		remote:          opts.Remote,
		userID:          opts.UserID,
		sinks:           opts.Sinks,
		refreshInterval: opts.RefreshInterval,
		onSyncError:     opts.OnSyncError,
		record:          Record{},
		generation:      map[string]uint64{},
		lastRefresh:     map[string]time.Time{},
		ctx:             bgCtx,
		cancel:          cancel,
	}

	if opts.Remote != nil {
		s.outbox = NewOutbox(opts.Remote, OutboxOptions{
			Policy:       opts.SyncPolicy,
			Attempts:     opts.SyncAttempts,
			InitialDelay: opts.RetryDelay,
			OnError:      opts.OnSyncError,
			OnSettled:    s.settled,
		})
	}

	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	data, err := s.blob.Read(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			slog.Warn("progress load failed, starting empty", "error", err)
		}
		return
	}

	rec, migrated, err := DecodeRecord(data)
	if err != nil {
		slog.Warn("progress record unreadable, starting empty", "error", err)
		return
	}
	s.record = rec
	slog.Debug("progress loaded", "categories", len(rec), "migrated", migrated)

	if migrated {
		s.mu.Lock()
		s.seq++
		seq := s.seq
		data, err := EncodeRecord(s.record)
		s.mu.Unlock()
		if err == nil {
			s.persist(data, seq)
		}
	}
}

// CompletedTopics returns the completed topics of a category.
func (s *Store) CompletedTopics(category string) Set {
	s.mu.RLock()
	var topics Set
	if p, ok := s.record[category]; ok {
		topics = p.Topics.Clone()
	} else {
		topics = Set{}
	}
	s.mu.RUnlock()

	s.maybeRefresh(category)
	return topics
}

// CompletedSections returns the completed sections of a topic.
func (s *Store) CompletedSections(category, topic string) Set {
	s.mu.RLock()
	var secs Set
	if p, ok := s.record[category]; ok {
		secs = p.Sections[topic].Clone()
	} else {
		secs = Set{}
	}
	s.mu.RUnlock()

	s.maybeRefresh(category)
	return secs
}

// Snapshot returns a deep copy of the whole record.
func (s *Store) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.Clone()
}

// ToggleTopicComplete flips a topic and returns its new state.
func (s *Store) ToggleTopicComplete(category, topic string) bool {
	var done bool
	s.mutate(category, func(p *CategoryProgress) []Op {
		done = p.ToggleTopic(topic)
		return []Op{{Kind: OpTopic, Category: category, Topic: topic, Completed: done}}
	})
	return done
}

// MarkTopicComplete marks a topic complete.
func (s *Store) MarkTopicComplete(category, topic string) {
	s.mutate(category, func(p *CategoryProgress) []Op {
		p.SetTopic(topic, true)
		return []Op{{Kind: OpTopic, Category: category, Topic: topic, Completed: true}}
	})
}

// MarkTopicIncomplete marks a topic incomplete and clears its sections.
func (s *Store) MarkTopicIncomplete(category, topic string) {
	s.mutate(category, func(p *CategoryProgress) []Op {
		p.SetTopic(topic, false)
		return []Op{{Kind: OpTopic, Category: category, Topic: topic, Completed: false}}
	})
}

// ToggleSectionComplete flips a section and returns its new state.
// totalSections <= 0 means the topic size is unknown and disables promotion.
func (s *Store) ToggleSectionComplete(category, topic, section string, totalSections int) bool {
	var done bool
	s.mutate(category, func(p *CategoryProgress) []Op {
		wasComplete := p.Topics.Has(topic)
		done = p.ToggleSection(topic, section, totalSections)
		ops := []Op{{Kind: OpSection, Category: category, Topic: topic, Section: section, Completed: done, Total: totalSections}}
		if !wasComplete && p.Topics.Has(topic) {
			ops = append(ops, Op{Kind: OpTopic, Category: category, Topic: topic, Completed: true})
		}
		return ops
	})
	return done
}

// CategoryPercent returns completed topics over totalTopics as a whole percentage.
func (s *Store) CategoryPercent(category string, totalTopics int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	if p, ok := s.record[category]; ok {
		n = p.Topics.Len()
	}
	return Percent(n, totalTopics)
}

// TopicPercent returns completed sections over totalSections as a whole percentage.
func (s *Store) TopicPercent(category, topic string, totalSections int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	if p, ok := s.record[category]; ok {
		n = p.Sections[topic].Len()
	}
	return Percent(n, totalSections)
}

// PendingSync reports how many remote writes are waiting to be delivered.
func (s *Store) PendingSync() int {
	if s.outbox == nil {
		return 0
	}
	return s.outbox.Len()
}

// Close stops background refreshes and drains queued remote writes until ctx ends.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.refreshWG.Wait()
	if s.outbox != nil {
		return s.outbox.Close(ctx)
	}
	return nil
}

// mutate applies fn to the category under the write lock, then persists,
// publishes and queues the resulting ops.
func (s *Store) mutate(category string, fn func(p *CategoryProgress) []Op) {
	s.mu.Lock()
	ops := fn(s.record.Category(category))
	s.generation[category]++
	s.seq++
	seq := s.seq
	data, err := EncodeRecord(s.record)
	var rejected []Op
	if s.outbox != nil {
		for _, op := range ops {
			if queued, qerr := s.outbox.Enqueue(op); qerr != nil {
				rejected = append(rejected, queued)
			}
		}
	}
	s.mu.Unlock()

	if err != nil {
		slog.Warn("progress encode failed", "error", err)
	} else {
		s.persist(data, seq)
	}

	for _, op := range ops {
		publish(s.sinks, s.event(op))
	}
	for _, op := range rejected {
		s.syncFailed(op, ErrOutboxClosed)
	}
}

// settled marks the category as changed remotely so that a refresh fetched
// before the write landed is discarded.
func (s *Store) settled(op Op) {
	s.mu.Lock()
	s.generation[op.Category]++
	s.mu.Unlock()
}

func (s *Store) syncFailed(op Op, err error) {
	slog.Warn("progress sync failed", "id", op.ID, "category", op.Category, "topic", op.Topic, "section", op.Section, "error", err)
	if s.onSyncError != nil {
		s.onSyncError(op, err)
	}
}

func (s *Store) event(op Op) Event {
	typ := EventTopicChanged
	if op.Kind == OpSection {
		typ = EventSectionChanged
	}
	return Event{
		UserID:    s.userID,
		Type:      typ,
		Category:  op.Category,
		Topic:     op.Topic,
		Section:   op.Section,
		Completed: op.Completed,
	}
}

// persist writes data unless a newer snapshot has already been written.
func (s *Store) persist(data []byte, seq uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if seq <= s.persistedSeq {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.blob.Write(ctx, StorageKey, data); err != nil {
		slog.Warn("progress persist failed", "error", err)
		return
	}
	s.persistedSeq = seq
}

// maybeRefresh starts a background fetch of category unless one ran within
// the refresh interval.
func (s *Store) maybeRefresh(category string) {
	if s.remote == nil {
		return
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if last, ok := s.lastRefresh[category]; ok && time.Since(last) < s.refreshInterval {
		s.mu.Unlock()
		return
	}
	s.lastRefresh[category] = time.Now()
	gen := s.generation[category]
	s.refreshWG.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.refreshWG.Done()
		_, _, _ = s.refreshGroup.Do(category, func() (any, error) {
			s.refresh(category, gen)
			return nil, nil
		})
	}()
}

func (s *Store) refresh(category string, gen uint64) {
	p, err := s.remote.Fetch(s.ctx, category)
	if err != nil {
		slog.Debug("progress refresh failed", "category", category, "error", err)
		return
	}

	s.mu.Lock()
	if s.generation[category] != gen || (s.outbox != nil && s.outbox.Pending(category)) {
		s.mu.Unlock()
		slog.Debug("progress refresh discarded, category changed during fetch", "category", category)
		return
	}
	s.record[category] = p.Clone()
	s.seq++
	seq := s.seq
	data, err := EncodeRecord(s.record)
	s.mu.Unlock()

	if err == nil {
		s.persist(data, seq)
	}
	slog.Debug("progress refreshed", "category", category, "topics", p.Topics.Len())
}
