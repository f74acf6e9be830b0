package broadcast

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain reads everything currently queued on sub without blocking.
func drain[T any](sub *Subscription[T]) []T {
	var items []T
	for {
		select {
		case item, ok := <-sub.C():
			if !ok {
				return items
			}
			items = append(items, item)
		default:
			return items
		}
	}
}

func TestBroadcaster_PublishPreservesOrder(t *testing.T) {
	b := New[int](WithBuffer(100))
	sub, err := b.Subscribe()
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		b.Publish(i)
	}

	got := drain(sub)
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v, "item %d out of order", i)
	}
}

func TestBroadcaster_FanOutToAllSubscribers(t *testing.T) {
	b := New[string]()

	const n = 10
	subs := make([]*Subscription[string], n)
	for i := range subs {
		sub, err := b.Subscribe()
		require.NoError(t, err)
		subs[i] = sub
	}

	delivered := b.Publish("hello")
	assert.Equal(t, n, delivered)

	for i, sub := range subs {
		assert.Equal(t, []string{"hello"}, drain(sub), "subscriber %d", i)
	}
}

func TestBroadcaster_OverflowIsolation(t *testing.T) {
	var dropCalls atomic.Int32
	var droppedFor atomic.Value
	b := New[int](
		WithBuffer(1),
		WithDropHandler(func(id string, total uint64) {
			dropCalls.Add(1)
			droppedFor.Store(id)
		}),
	)

	slow, err := b.Subscribe()
	require.NoError(t, err)
	fast, err := b.Subscribe()
	require.NoError(t, err)

	require.Equal(t, 2, b.Publish(1))
	assert.Equal(t, []int{1}, drain(fast))

	// slow still holds item 1, so item 2 is dropped for it only.
	done := make(chan int)
	go func() { done <- b.Publish(2) }()

	select {
	case delivered := <-done:
		assert.Equal(t, 1, delivered)
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	assert.Equal(t, []int{2}, drain(fast))
	assert.Equal(t, []int{1}, drain(slow))
	assert.Equal(t, uint64(1), slow.Dropped())
	assert.Equal(t, uint64(0), fast.Dropped())
	assert.Equal(t, int32(1), dropCalls.Load())
	assert.Equal(t, slow.ID(), droppedFor.Load())
	assert.False(t, slow.Closed(), "overflow must not close the subscription")

	stats := b.Stats()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 2, stats.Subscribers)
}

func TestBroadcaster_NoRetroactiveDelivery(t *testing.T) {
	b := New[string]()

	early, err := b.Subscribe()
	require.NoError(t, err)
	gone, err := b.Subscribe()
	require.NoError(t, err)
	b.Unsubscribe(gone)

	b.Publish("x")

	late, err := b.Subscribe()
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, drain(early))
	assert.Empty(t, drain(late), "late subscriber must not see earlier items")

	_, ok := <-gone.C()
	assert.False(t, ok, "closed subscription must not receive anything")

	b.Publish("y")
	assert.Equal(t, []string{"y"}, drain(late))
}

func TestBroadcaster_UnsubscribeIsIdempotent(t *testing.T) {
	b := New[int]()
	sub, err := b.Subscribe()
	require.NoError(t, err)
	other, err := b.Subscribe()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		b.Unsubscribe(sub)
		b.Unsubscribe(sub)
		sub.Close()
		b.Unsubscribe(nil)
	})

	assert.True(t, sub.Closed())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 1, b.Publish(7))
	assert.Equal(t, []int{7}, drain(other))
}

func TestBroadcaster_MaxSubscribers(t *testing.T) {
	b := New[int](WithMaxSubscribers(2))

	first, err := b.Subscribe()
	require.NoError(t, err)
	_, err = b.Subscribe()
	require.NoError(t, err)

	_, err = b.Subscribe()
	require.ErrorIs(t, err, ErrResourceExhausted)

	first.Close()
	_, err = b.Subscribe()
	assert.NoError(t, err, "a freed slot should be reusable")
}

func TestBroadcaster_UnlimitedSubscribers(t *testing.T) {
	b := New[int](WithMaxSubscribers(0))
	for i := 0; i < DefaultMaxSubscribers+1; i++ {
		_, err := b.Subscribe()
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultMaxSubscribers+1, b.Len())
}

func TestBroadcaster_Close(t *testing.T) {
	b := New[int]()
	sub, err := b.Subscribe()
	require.NoError(t, err)

	b.Close()
	b.Close()

	_, ok := <-sub.C()
	assert.False(t, ok, "subscription should end when the broadcaster closes")

	_, err = b.Subscribe()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, b.Publish(1))
	assert.NotPanics(t, sub.Close)
}

func TestBroadcaster_ConsumerRangeEndsOnUnsubscribe(t *testing.T) {
	b := New[int]()
	sub, err := b.Subscribe()
	require.NoError(t, err)

	received := make(chan []int)
	go func() {
		var got []int
		for v := range sub.C() {
			got = append(got, v)
		}
		received <- got
	}()

	b.Publish(1)
	b.Publish(2)
	require.Eventually(t, func() bool { return len(sub.C()) == 0 }, time.Second, 5*time.Millisecond)
	sub.Close()

	select {
	case got := <-received:
		assert.Equal(t, []int{1, 2}, got)
	case <-time.After(time.Second):
		t.Fatal("consumer did not observe stream end")
	}
}

func TestBroadcaster_ConcurrentUse(t *testing.T) {
	b := New[int](WithBuffer(1000))

	// observer has room for everything the single publisher sends while
	// other goroutines churn subscriptions around it.
	observer, err := b.Subscribe()
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				sub, err := b.Subscribe()
				if err != nil {
					continue
				}
				drain(sub)
				b.Unsubscribe(sub)
				b.Unsubscribe(sub)
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		b.Publish(i)
	}
	close(stop)
	wg.Wait()

	got := drain(observer)
	require.Len(t, got, 1000)
	for i, v := range got {
		require.Equal(t, i, v)
	}
	assert.Equal(t, 1, b.Len())
}
