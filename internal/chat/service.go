package chat

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nfrund/livechat/internal/broadcast"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxMessageLength is the rune limit applied when none is configured.
const DefaultMaxMessageLength = 2000

// ServiceConfig holds the tunables of a Service.
type ServiceConfig struct {
	// Buffer is the per-viewer queue capacity. Items beyond it are dropped
	// for that viewer only.
	Buffer int
	// MaxSubscribers caps concurrent viewers. Zero means unlimited.
	MaxSubscribers int
	// MaxMessageLength is the rune limit for a single line.
	MaxMessageLength int
}

// DefaultServiceConfig returns the configuration used when none is supplied.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Buffer:           broadcast.DefaultBuffer,
		MaxSubscribers:   broadcast.DefaultMaxSubscribers,
		MaxMessageLength: DefaultMaxMessageLength,
	}
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithDropHandler is called whenever a message is dropped for a slow viewer.
func WithDropHandler(fn broadcast.DropHandler) ServiceOption {
	return func(s *Service) {
		s.onDrop = fn
	}
}

// WithPostObserver registers fn to be called with every accepted message,
// after it has been offered to viewers.
func WithPostObserver(fn func(Message)) ServiceOption {
	return func(s *Service) {
		s.observers = append(s.observers, fn)
	}
}

// Service is the chat API used by the session layer. It owns one
// Broadcaster for its entire lifetime.
type Service struct {
	messages *broadcast.Broadcaster[Message]
	maxLen   int
	now      func() time.Time
	logger   *slog.Logger
	onDrop   broadcast.DropHandler

	observers []func(Message)
}

// NewService creates a Service and its broadcaster.
func NewService(cfg ServiceConfig, opts ...ServiceOption) *Service {
	s := &Service{
		maxLen: cfg.MaxMessageLength,
		now:    time.Now,
		logger: slog.Default().With("component", "chat_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxLen <= 0 {
		s.maxLen = DefaultMaxMessageLength
	}

	s.messages = broadcast.New[Message](
		broadcast.WithBuffer(cfg.Buffer),
		broadcast.WithMaxSubscribers(cfg.MaxSubscribers),
		broadcast.WithLogger(s.logger),
		broadcast.WithDropHandler(s.onDrop),
	)
	return s
}

// Join registers a new viewer and returns its live stream of messages.
// Only messages added after Join returns are guaranteed to be offered to it.
func (s *Service) Join() (*Stream, error) {
	sub, err := s.messages.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJoinRejected, err)
	}
	return &Stream{sub: sub}, nil
}

// Add stamps text with the caller's identity and the current time and
// broadcasts it to every joined viewer. It never waits on viewers.
func (s *Service) Add(id Identity, text string) (Message, error) {
	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(text); n > s.maxLen {
		return Message{}, fmt.Errorf("%w: %d runes, limit %d", ErrMessageTooLong, n, s.maxLen)
	}

	msg := Message{
		Username: resolveName(id),
		Text:     text,
		Time:     s.now(),
	}
	delivered := s.messages.Publish(msg)
	s.logger.Debug("Message broadcast", "username", msg.Username, "recipient_count", delivered)
	for _, fn := range s.observers {
		fn(msg)
	}
	return msg, nil
}

// Stats exposes the underlying broadcaster counters.
func (s *Service) Stats() broadcast.Stats {
	return s.messages.Stats()
}

// Close ends every stream. Further joins fail.
func (s *Service) Close() {
	s.messages.Close()
}

// Stream is one viewer's subscription to the chat.
type Stream struct {
	sub *broadcast.Subscription[Message]
}

// ID returns the stream's unique identifier.
func (st *Stream) ID() string {
	return st.sub.ID()
}

// Messages returns the receive side. It is closed once the stream ends, and
// a message missed because of overflow is never replayed.
func (st *Stream) Messages() <-chan Message {
	return st.sub.C()
}

// Dropped reports how many messages this viewer missed because its queue was full.
func (st *Stream) Dropped() uint64 {
	return st.sub.Dropped()
}

// Leave ends the stream. It is safe to call more than once.
func (st *Stream) Leave() {
	st.sub.Close()
}
