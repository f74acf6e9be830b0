package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"
)

// Metadata keys used to carry Message fields through watermill.
const (
	metaKeyUserID = "user_id"
	metaKeyTopic  = "topic"
)

// outputBuffer is the per-subscriber buffer of the in-memory channel.
const outputBuffer = 256

// Bridge implements Publisher and Subscriber on top of watermill's GoChannel.
type Bridge struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger watermill.LoggerAdapter
	tracer trace.Tracer
}

// NewBridge creates an in-memory event bus without tracing.
func NewBridge() *Bridge {
	return NewBridgeWithTracer(nil)
}

// NewBridgeWithTracer creates an in-memory event bus. When tracer is non-nil,
// publishes and handler invocations are wrapped in spans.
func NewBridgeWithTracer(tracer trace.Tracer) *Bridge {
	logger := watermill.NewStdLogger(false, false)
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: outputBuffer},
		logger,
	)

	var pub message.Publisher = goChannel
	if tracer != nil {
		pub = NewPublisherTracingMiddleware(goChannel, tracer)
	}

	return &Bridge{
		pub:    pub,
		sub:    goChannel,
		logger: logger,
		tracer: tracer,
	}
}

func mapToWatermillMessage(ctx context.Context, msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wmMsg.SetContext(ctx)

	wmMsg.Metadata.Set(metaKeyUserID, msg.UserID)
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)
	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	return wmMsg
}

func mapToPubSubMessage(wmMsg *message.Message) Message {
	metadata := make(map[string]string)
	for k, v := range wmMsg.Metadata {
		if k != metaKeyUserID && k != metaKeyTopic {
			metadata[k] = v
		}
	}

	return Message{
		Topic:    wmMsg.Metadata.Get(metaKeyTopic),
		UserID:   wmMsg.Metadata.Get(metaKeyUserID),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

// Publish implements Publisher.
func (b *Bridge) Publish(ctx context.Context, msg Message) error {
	return b.pub.Publish(msg.Topic, mapToWatermillMessage(ctx, msg))
}

// Subscribe implements Subscriber. Handler errors are logged and the message
// is still acked: GoChannel redelivers nacked messages indefinitely.
func (b *Bridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	process := func(wmMsg *message.Message) ([]*message.Message, error) {
		msgCtx := wmMsg.Context()
		if msgCtx == nil {
			msgCtx = ctx
		}
		return nil, handler(msgCtx, mapToPubSubMessage(wmMsg))
	}
	if b.tracer != nil {
		process = TracingMiddleware(b.tracer)(process)
	}

	go func() {
		for wmMsg := range messages {
			if _, err := process(wmMsg); err != nil {
				slog.Error("Failed to handle message", "topic", topic, "msg_id", wmMsg.UUID, "error", err)
			}
			wmMsg.Ack()
		}
		slog.Debug("Subscription message loop ended", "topic", topic)
	}()

	return nil
}

// Close shuts down the bus and ends all subscriptions.
func (b *Bridge) Close() error {
	return b.sub.Close()
}
