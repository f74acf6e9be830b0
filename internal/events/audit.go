package events

import (
	"context"
	"log/slog"

	"github.com/nfrund/livechat/internal/chat"
	"github.com/nfrund/livechat/internal/pubsub"
)

// Audit logs every posted message and session change at info level.
func Audit(ctx context.Context, sub pubsub.Subscriber, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit")

	if err := pubsub.Handle(ctx, sub, MessagePosted, func(_ context.Context, m chat.Message) error {
		logger.Info("Message posted", "user", m.Username, "length", len(m.Text), "time", m.Time)
		return nil
	}); err != nil {
		return err
	}
	if err := pubsub.Handle(ctx, sub, SessionJoined, func(_ context.Context, s Session) error {
		logger.Info("Session joined", "user", s.Username, "client_id", s.ClientID)
		return nil
	}); err != nil {
		return err
	}
	return pubsub.Handle(ctx, sub, SessionLeft, func(_ context.Context, s Session) error {
		logger.Info("Session left", "user", s.Username, "client_id", s.ClientID, "reason", s.Reason)
		return nil
	})
}

// PostObserver returns a function suitable for chat.WithPostObserver that
// publishes each accepted message on MessagePosted.
func PostObserver(pub pubsub.Publisher, logger *slog.Logger) func(chat.Message) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(m chat.Message) {
		if err := pubsub.Publish(context.Background(), pub, MessagePosted, m.Username, m); err != nil {
			logger.Error("Failed to publish message event", "error", err)
		}
	}
}
