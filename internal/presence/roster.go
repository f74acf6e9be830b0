package presence

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/nfrund/livechat/internal/events"
	"github.com/nfrund/livechat/internal/pubsub"
)

// Roster tracks which users currently have at least one open chat stream.
// It is fed by session lifecycle events from the bus.
type Roster struct {
	mu      sync.RWMutex
	clients map[string]string // clientID -> username
	counts  map[string]int    // username -> open connections
	// departed holds clients whose left event overtook their joined event.
	departed map[string]struct{}
	logger   *slog.Logger
}

// NewRoster creates an empty roster.
func NewRoster(logger *slog.Logger) *Roster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Roster{
		clients:  make(map[string]string),
		counts:   make(map[string]int),
		departed: make(map[string]struct{}),
		logger:   logger.With("component", "presence"),
	}
}

// Start subscribes the roster to session events until ctx is cancelled.
func (r *Roster) Start(ctx context.Context, sub pubsub.Subscriber) error {
	if err := pubsub.Handle(ctx, sub, events.SessionJoined, func(_ context.Context, s events.Session) error {
		r.Joined(s)
		return nil
	}); err != nil {
		return err
	}
	return pubsub.Handle(ctx, sub, events.SessionLeft, func(_ context.Context, s events.Session) error {
		r.Left(s)
		return nil
	})
}

// Joined records a new connection.
func (r *Roster) Joined(s events.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, gone := r.departed[s.ClientID]; gone {
		delete(r.departed, s.ClientID)
		return
	}
	if _, dup := r.clients[s.ClientID]; dup {
		return
	}
	r.clients[s.ClientID] = s.Username
	r.counts[s.Username]++
	if r.counts[s.Username] == 1 {
		r.logger.Info("User came online", "user", s.Username, "client_id", s.ClientID)
	}
}

// Left records a closed connection.
func (r *Roster) Left(s events.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.clients[s.ClientID]
	if !ok {
		r.departed[s.ClientID] = struct{}{}
		return
	}
	delete(r.clients, s.ClientID)

	r.counts[username]--
	if r.counts[username] <= 0 {
		delete(r.counts, username)
		r.logger.Info("User went offline", "user", username, "client_id", s.ClientID)
	}
}

// Online returns the sorted names of users with at least one connection.
func (r *Roster) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.counts))
	for u := range r.counts {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Connections returns the number of open connections for username.
func (r *Roster) Connections(username string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[username]
}
