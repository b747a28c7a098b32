package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"
)

// ErrOutboxClosed is returned by Enqueue once Close has been called.
var ErrOutboxClosed = errors.New("progress outbox closed")

// SyncPolicy decides what happens when a remote write fails.
type SyncPolicy string

const (
	// SyncRetry retries with exponential backoff before giving up.
	SyncRetry SyncPolicy = "retry"
	// SyncDrop makes a single attempt.
	SyncDrop SyncPolicy = "drop"
)

// OpKind distinguishes topic writes from section writes.
type OpKind string

const (
	OpTopic   OpKind = "topic"
	OpSection OpKind = "section"
)

// Op is a queued remote write. It carries the desired final state so that
// replaying it is idempotent.
type Op struct {
	ID        string
	Kind      OpKind
	Category  string
	Topic     string
	Section   string
	Completed bool
	Total     int
	CreatedAt time.Time
}

func (o Op) key() string {
	if o.Kind == OpSection {
		return fmt.Sprintf("%s/%s/%s/%s", o.Kind, o.Category, o.Topic, o.Section)
	}
	return fmt.Sprintf("%s/%s/%s", o.Kind, o.Category, o.Topic)
}

// sameTopic reports whether o and other write to the same topic. A topic
// write can clear or promote the sections under it, so such ops must keep
// their relative order.
func (o Op) sameTopic(other Op) bool {
	return o.Category == other.Category && o.Topic == other.Topic
}

// OutboxOptions configures an Outbox.
type OutboxOptions struct {
	Policy       SyncPolicy
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// OnError is called once per op that could not be delivered.
	OnError func(Op, error)
	// OnSettled is called after each delivery attempt finishes, before the
	// op stops counting as pending.
	OnSettled func(Op)
}

// Outbox delivers ops to a Remote on a single background worker, in enqueue
// order. A newer op for the same key replaces a pending one in place, unless
// another op for the same topic is queued after it.
type Outbox struct {
	remote    Remote
	retrier   retry.Retry[struct{}]
	onError   func(Op, error)
	onSettled func(Op)

	mu       sync.Mutex
	queue    []Op
	inflight *Op
	closing  bool

	wake   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// NewOutbox starts the delivery worker.
func NewOutbox(remote Remote, opts OutboxOptions) *Outbox {
	attempts := opts.Attempts
	if opts.Policy == SyncDrop || attempts < 1 {
		attempts = 1
	}
	initial := opts.InitialDelay
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Outbox{
		remote: remote,
		retrier: retry.New[struct{}](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  initial,
			MaxDelay:      maxDelay,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   IsRetryable,
		}),
		onError:   opts.OnError,
		onSettled: opts.OnSettled,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		cancel:    cancel,
	}
	go o.run(ctx)
	return o
}

// Enqueue schedules op for delivery and returns it with its assigned ID.
// After Close it returns ErrOutboxClosed and the op is not queued.
func (o *Outbox) Enqueue(op Op) (Op, error) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}

	o.mu.Lock()
	if o.closing {
		o.mu.Unlock()
		return op, ErrOutboxClosed
	}
	if i := o.coalesceIndex(op); i >= 0 {
		slog.Debug("coalesced progress op", "key", op.key(), "replaced", o.queue[i].ID)
		o.queue[i] = op
	} else {
		o.queue = append(o.queue, op)
	}
	o.mu.Unlock()

	o.signal()
	return op, nil
}

// coalesceIndex returns the position of the queued op that op may replace,
// or -1. Only the last queued op for op's topic is a candidate.
func (o *Outbox) coalesceIndex(op Op) int {
	for i := len(o.queue) - 1; i >= 0; i-- {
		if !o.queue[i].sameTopic(op) {
			continue
		}
		if o.queue[i].key() == op.key() {
			return i
		}
		return -1
	}
	return -1
}

// Pending reports whether any op for category is queued or in flight.
func (o *Outbox) Pending(category string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight != nil && o.inflight.Category == category {
		return true
	}
	for _, op := range o.queue {
		if op.Category == category {
			return true
		}
	}
	return false
}

// Len returns the number of queued ops, excluding one in flight.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Close stops accepting work and waits for the queue to drain. If ctx ends
// first the worker is cancelled and the remaining ops are reported as failed.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	o.closing = true
	o.mu.Unlock()
	o.signal()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		o.cancel()
		<-o.done
		return fmt.Errorf("draining progress outbox: %w", ctx.Err())
	}
}

func (o *Outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Outbox) run(ctx context.Context) {
	defer close(o.done)
	defer o.cancel()

	for {
		op, ok, closing := o.next()
		if !ok {
			if closing {
				return
			}
			select {
			case <-o.wake:
				continue
			case <-ctx.Done():
				o.abandon(ctx.Err())
				return
			}
		}

		err := o.deliver(ctx, op)
		if o.onSettled != nil {
			o.onSettled(op)
		}

		o.mu.Lock()
		o.inflight = nil
		o.mu.Unlock()

		if err != nil {
			o.fail(op, err)
			if ctx.Err() != nil {
				o.abandon(ctx.Err())
				return
			}
		}
	}
}

func (o *Outbox) next() (Op, bool, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return Op{}, false, o.closing
	}
	op := o.queue[0]
	o.queue = o.queue[1:]
	o.inflight = &op
	return op, true, o.closing
}

func (o *Outbox) deliver(ctx context.Context, op Op) error {
	_, err := o.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.remote.Apply(ctx, op)
	})
	if err == nil {
		slog.Debug("progress op synced", "id", op.ID, "kind", op.Kind, "category", op.Category, "topic", op.Topic)
	}
	return err
}

func (o *Outbox) fail(op Op, err error) {
	slog.Warn("progress sync failed",
		"id", op.ID,
		"kind", op.Kind,
		"category", op.Category,
		"topic", op.Topic,
		"section", op.Section,
		"error", err,
	)
	if o.onError != nil {
		o.onError(op, err)
	}
}

func (o *Outbox) abandon(err error) {
	o.mu.Lock()
	remaining := o.queue
	o.queue = nil
	o.mu.Unlock()
	for _, op := range remaining {
		o.fail(op, err)
	}
}
