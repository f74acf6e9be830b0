package broadcast

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	// DefaultBuffer is the per-subscription queue capacity.
	DefaultBuffer = 64
	// DefaultMaxSubscribers caps the active set. Zero means unlimited.
	DefaultMaxSubscribers = 1024
)

// Stats is a point-in-time view of a Broadcaster's counters.
type Stats struct {
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// DropHandler is notified whenever an item is dropped for a subscriber
// whose queue is full. total is that subscriber's running drop count.
type DropHandler func(subscriberID string, total uint64)

// Broadcaster is a best-effort multicast channel. Every published item is
// offered to each subscription active at the moment of the call. A full
// subscriber queue drops the item for that subscriber only; Publish never
// blocks.
//
// The active set is an immutable snapshot swapped under mu, so Publish reads
// it without locking. A Subscribe racing with a Publish may or may not see
// that particular item.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   atomic.Pointer[[]*Subscription[T]]
	closed bool

	buffer  int
	maxSubs int
	logger  *slog.Logger
	onDrop  DropHandler

	published atomic.Uint64
	dropped   atomic.Uint64
}

// Option configures a Broadcaster.
type Option func(*config)

type config struct {
	buffer  int
	maxSubs int
	logger  *slog.Logger
	onDrop  DropHandler
}

// WithBuffer sets the queue capacity of each subscription. Values below one
// are raised to one.
func WithBuffer(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.buffer = n
	}
}

// WithMaxSubscribers caps the number of active subscriptions. Zero disables the cap.
func WithMaxSubscribers(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.maxSubs = n
	}
}

// WithLogger sets the logger used for subscription lifecycle and drop events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDropHandler registers a callback for dropped deliveries. It runs on the
// publishing goroutine and must not block.
func WithDropHandler(fn DropHandler) Option {
	return func(c *config) {
		c.onDrop = fn
	}
}

// New creates a Broadcaster with no subscribers.
func New[T any](opts ...Option) *Broadcaster[T] {
	cfg := config{
		buffer:  DefaultBuffer,
		maxSubs: DefaultMaxSubscribers,
		logger:  slog.Default().With("component", "broadcast"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Broadcaster[T]{
		buffer:  cfg.buffer,
		maxSubs: cfg.maxSubs,
		logger:  cfg.logger,
		onDrop:  cfg.onDrop,
	}
	empty := make([]*Subscription[T], 0)
	b.subs.Store(&empty)
	return b
}

func (b *Broadcaster[T]) snapshot() []*Subscription[T] {
	return *b.subs.Load()
}

// Subscribe registers a new subscription with its own queue.
// It returns ErrResourceExhausted when the subscriber cap is reached and
// ErrClosed once the Broadcaster has been closed.
func (b *Broadcaster[T]) Subscribe() (*Subscription[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	current := b.snapshot()
	if b.maxSubs > 0 && len(current) >= b.maxSubs {
		b.logger.Warn("Subscriber limit reached", "max_subscribers", b.maxSubs)
		return nil, fmt.Errorf("%w: %d active subscribers", ErrResourceExhausted, len(current))
	}

	sub := &Subscription[T]{
		id:    uuid.NewString(),
		ch:    make(chan T, b.buffer),
		owner: b,
	}

	next := make([]*Subscription[T], len(current), len(current)+1)
	copy(next, current)
	next = append(next, sub)
	b.subs.Store(&next)

	b.logger.Debug("Subscriber registered", "subscriber_id", sub.id, "total_subscribers", len(next))
	return sub, nil
}

// Unsubscribe removes sub from the active set and closes its queue.
// It is safe to call more than once and with subscriptions that were already
// removed by Close.
func (b *Broadcaster[T]) Unsubscribe(sub *Subscription[T]) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	current := b.snapshot()
	idx := -1
	for i, s := range current {
		if s == sub {
			idx = i
			break
		}
	}
	var remaining int
	if idx >= 0 {
		next := make([]*Subscription[T], 0, len(current)-1)
		next = append(next, current[:idx]...)
		next = append(next, current[idx+1:]...)
		b.subs.Store(&next)
		remaining = len(next)
	}
	b.mu.Unlock()

	sub.shut()

	if idx >= 0 {
		b.logger.Debug("Subscriber unregistered", "subscriber_id", sub.id, "total_subscribers", remaining)
	}
}

// Publish offers item to every subscription in the current snapshot and
// returns how many accepted it. It never blocks.
func (b *Broadcaster[T]) Publish(item T) int {
	subs := b.snapshot()
	b.published.Add(1)

	delivered := 0
	for _, sub := range subs {
		switch sub.offer(item) {
		case outcomeDelivered:
			delivered++
		case outcomeDropped:
			b.dropped.Add(1)
			total := sub.dropped.Add(1)
			b.logger.Debug("Subscriber queue full, dropping item", "subscriber_id", sub.id, "dropped_total", total)
			if b.onDrop != nil {
				b.onDrop(sub.id, total)
			}
		}
	}
	return delivered
}

// Close closes every active subscription and rejects further subscribes.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	current := b.snapshot()
	empty := make([]*Subscription[T], 0)
	b.subs.Store(&empty)
	b.mu.Unlock()

	for _, sub := range current {
		sub.shut()
	}
	b.logger.Info("Broadcaster closed", "closed_subscribers", len(current))
}

// Len returns the number of active subscriptions.
func (b *Broadcaster[T]) Len() int {
	return len(b.snapshot())
}

// Stats returns the current counters.
func (b *Broadcaster[T]) Stats() Stats {
	return Stats{
		Subscribers: b.Len(),
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
	}
}
