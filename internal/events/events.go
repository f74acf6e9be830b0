// Package events defines the lifecycle topics carried on the event bus.
package events

import (
	"time"

	"github.com/nfrund/livechat/internal/chat"
	"github.com/nfrund/livechat/internal/pubsub"
)

// Session describes one viewer connection.
type Session struct {
	ClientID string    `json:"clientID"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
	// Reason is set on chat.session.left.
	Reason string `json:"reason,omitempty"`
}

var (
	// SessionJoined is published when a viewer's stream is opened.
	SessionJoined = pubsub.NewTopic[Session]("chat.session.joined")

	// SessionLeft is published when a viewer's stream is closed.
	SessionLeft = pubsub.NewTopic[Session]("chat.session.left")

	// MessagePosted is published after a line has been broadcast.
	MessagePosted = pubsub.NewTopic[chat.Message]("chat.message.posted")
)

// TopicInfo describes a topic for operators.
type TopicInfo struct {
	Name        string `json:"name"`
	Payload     string `json:"payload"`
	Description string `json:"description"`
}

// Catalog lists every topic the server publishes.
func Catalog() []TopicInfo {
	return []TopicInfo{
		{Name: SessionJoined.Name(), Payload: "Session", Description: "a viewer's stream was opened"},
		{Name: SessionLeft.Name(), Payload: "Session", Description: "a viewer's stream was closed"},
		{Name: MessagePosted.Name(), Payload: "chat.Message", Description: "a line was broadcast to the room"},
	}
}
