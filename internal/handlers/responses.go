package handlers

import (
	"time"

	"github.com/nfrund/livechat/internal/broadcast"
	"github.com/nfrund/livechat/internal/chat"
)

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageResponse is a posted chat line.
type MessageResponse struct {
	Username string    `json:"username"`
	Text     string    `json:"text"`
	Time     time.Time `json:"time"`
}

// NewMessageResponse creates a MessageResponse from a chat.Message.
func NewMessageResponse(m chat.Message) *MessageResponse {
	return &MessageResponse{
		Username: m.Username,
		Text:     m.Text,
		Time:     m.Time,
	}
}

// OnlineResponse lists the users with an open chat stream.
type OnlineResponse struct {
	Users []string `json:"online_users"`
	Count int      `json:"count"`
}

// HealthResponse reports liveness and broadcaster counters.
type HealthResponse struct {
	Status string          `json:"status"`
	Chat   broadcast.Stats `json:"chat"`
}
