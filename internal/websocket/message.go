package websocket

import (
	"context"
	"encoding/json"

	"github.com/coder/websocket"
	"github.com/nfrund/livechat/internal/chat"
	"github.com/nfrund/livechat/internal/rendering"
	"github.com/nfrund/livechat/internal/view"
)

// Envelope is the frame format of the data endpoint.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Envelope types.
const (
	TypeMessage = "message"
	TypeError   = "error"
)

// incomingFrame is what clients send. htmx's ws-send adds a HEADERS object
// which is ignored.
type incomingFrame struct {
	Text string `json:"text"`
}

// encoder turns a chat message into one outgoing frame.
type encoder func(ctx context.Context, m chat.Message) (websocket.MessageType, []byte, error)

func htmlEncoder(r rendering.Renderer) encoder {
	return func(ctx context.Context, m chat.Message) (websocket.MessageType, []byte, error) {
		b, err := r.RenderComponent(ctx, view.MessageFragment(m))
		return websocket.MessageText, b, err
	}
}

func dataEncoder(_ context.Context, m chat.Message) (websocket.MessageType, []byte, error) {
	b, err := json.Marshal(Envelope{Type: TypeMessage, Payload: m})
	return websocket.MessageText, b, err
}
