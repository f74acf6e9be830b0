package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Topic binds a topic name to the payload type carried on it.
type Topic[T any] struct {
	name string
}

// NewTopic creates a typed topic.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the topic name.
func (t Topic[T]) Name() string {
	return t.name
}

// Publish sends a typed payload. The compiler ensures payload matches T.
func Publish[T any](ctx context.Context, p Publisher, topic Topic[T], userID string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic.name, err)
	}
	return p.Publish(ctx, Message{
		Topic:   topic.name,
		UserID:  userID,
		Payload: data,
	})
}

// Handle subscribes to topic and decodes each payload into T before calling fn.
func Handle[T any](ctx context.Context, s Subscriber, topic Topic[T], fn func(context.Context, T) error) error {
	return s.Subscribe(ctx, topic.name, func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", topic.name, err)
		}
		return fn(ctx, payload)
	})
}
