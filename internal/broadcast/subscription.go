package broadcast

import (
	"sync"
	"sync/atomic"
)

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeDropped
	outcomeClosed
)

// Subscription is one consumer's registration with a Broadcaster.
// The consumer owns the receiving end returned by C.
type Subscription[T any] struct {
	id    string
	ch    chan T
	owner *Broadcaster[T]

	// mu serialises sends with close so a concurrent Unsubscribe cannot
	// race a Publish into a send on a closed channel.
	mu      sync.Mutex
	closed  bool
	dropped atomic.Uint64
}

// ID returns the subscription's unique identifier.
func (s *Subscription[T]) ID() string {
	return s.id
}

// C returns the delivery queue. It is closed when the subscription ends.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Dropped returns how many items were dropped because the queue was full.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Closed reports whether the subscription has ended.
func (s *Subscription[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close unsubscribes. Calling it more than once is a no-op.
func (s *Subscription[T]) Close() {
	s.owner.Unsubscribe(s)
}

func (s *Subscription[T]) offer(item T) outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return outcomeClosed
	}
	select {
	case s.ch <- item:
		return outcomeDelivered
	default:
		return outcomeDropped
	}
}

func (s *Subscription[T]) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
