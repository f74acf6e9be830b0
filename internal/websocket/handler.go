package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/livechat/internal/auth"
	"github.com/nfrund/livechat/internal/broadcast"
	"github.com/nfrund/livechat/internal/chat"
	"github.com/nfrund/livechat/internal/events"
	"github.com/nfrund/livechat/internal/middleware"
	"github.com/nfrund/livechat/internal/pubsub"
	"github.com/nfrund/livechat/internal/rendering"
)

const (
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
	maxFrameSize = 32 << 10
)

// Handler serves one live chat stream per websocket connection.
type Handler struct {
	svc            *chat.Service
	bus            pubsub.Publisher
	renderer       rendering.Renderer
	originPatterns []string
	logger         *slog.Logger
}

// Option customises a Handler.
type Option func(*Handler)

// WithOriginPatterns allows cross-origin upgrades from the given host patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) {
		h.originPatterns = patterns
	}
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler creates a socket handler. bus may be nil, in which case no
// session events are published.
func NewHandler(svc *chat.Service, bus pubsub.Publisher, renderer rendering.Renderer, opts ...Option) *Handler {
	h := &Handler{
		svc:      svc,
		bus:      bus,
		renderer: renderer,
		logger:   slog.Default().With("component", "websocket"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTML streams messages as htmx out-of-band fragments (GET /ws).
func (h *Handler) ServeHTML(c echo.Context) error {
	return h.serve(c, htmlEncoder(h.renderer), false)
}

// ServeData streams messages as JSON envelopes (GET /ws/data). Rejected
// posts are answered with an error envelope.
func (h *Handler) ServeData(c echo.Context) error {
	return h.serve(c, dataEncoder, true)
}

// connection is one viewer's socket and stream.
type connection struct {
	h         *Handler
	conn      *websocket.Conn
	stream    *chat.Stream
	principal *auth.Principal
	encode    encoder
	replyErrs bool
	logger    *slog.Logger
}

func (h *Handler) serve(c echo.Context, enc encoder, replyErrs bool) error {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return echo.ErrUnauthorized
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		// Accept has already written the HTTP error.
		h.logger.Warn("Failed to upgrade connection", "user", principal.Username, "error", err)
		return nil
	}
	conn.SetReadLimit(maxFrameSize)

	stream, err := h.svc.Join()
	if err != nil {
		if errors.Is(err, broadcast.ErrResourceExhausted) {
			h.logger.Warn("Rejecting viewer at capacity", "user", principal.Username)
			conn.Close(websocket.StatusTryAgainLater, "try again later")
			return nil
		}
		h.logger.Info("Rejecting viewer", "user", principal.Username, "error", err)
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return nil
	}

	cc := &connection{
		h:         h,
		conn:      conn,
		stream:    stream,
		principal: principal,
		encode:    enc,
		replyErrs: replyErrs,
		logger:    h.logger.With("user", principal.Username, "client_id", stream.ID()),
	}
	cc.run(c.Request().Context())
	return nil
}

func (cc *connection) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cc.publish(events.SessionJoined, "")
	cc.logger.Info("Viewer joined")

	readDone := make(chan error, 1)
	go func() {
		readDone <- cc.readPump(ctx)
		cancel()
	}()

	status, reason := cc.writePump(ctx)
	cc.stream.Leave()
	// Close while the read pump is still running so it can consume the
	// peer's close frame.
	cc.conn.Close(status, reason)
	cancel()
	<-readDone

	cc.publish(events.SessionLeft, reason)
	cc.logger.Info("Viewer left", "reason", reason, "dropped", cc.stream.Dropped())
}

// writePump forwards the stream to the socket until the stream ends, a write
// fails or ctx is cancelled. It returns the close status to send.
func (cc *connection) writePump(ctx context.Context) (websocket.StatusCode, string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return websocket.StatusNormalClosure, "client closed"

		case msg, ok := <-cc.stream.Messages():
			if !ok {
				return websocket.StatusGoingAway, "server shutting down"
			}
			typ, data, err := cc.encode(ctx, msg)
			if err != nil {
				cc.logger.Error("Failed to encode message", "error", err)
				continue
			}
			if err := cc.write(ctx, typ, data); err != nil {
				cc.logger.Debug("Write failed", "error", err)
				return websocket.StatusInternalError, "write failed"
			}

		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, writeWait)
			err := cc.conn.Ping(pctx)
			pcancel()
			if err != nil {
				cc.logger.Debug("Ping failed", "error", err)
				return websocket.StatusGoingAway, "ping timeout"
			}
		}
	}
}

func (cc *connection) write(ctx context.Context, typ websocket.MessageType, data []byte) error {
	wctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return cc.conn.Write(wctx, typ, data)
}

// readPump turns incoming frames into posts. Invalid frames and rejected
// text are logged and skipped.
func (cc *connection) readPump(ctx context.Context) error {
	for {
		_, data, err := cc.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				cc.logger.Debug("Socket closed by client")
			default:
				if ctx.Err() == nil {
					cc.logger.Debug("Read ended", "error", err)
				}
			}
			return err
		}

		var frame incomingFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			cc.logger.Warn("Ignoring malformed frame", "error", err)
			cc.replyError(ctx, "malformed frame")
			continue
		}
		if _, err := cc.h.svc.Add(cc.principal, frame.Text); err != nil {
			cc.logger.Debug("Post rejected", "error", err)
			cc.replyError(ctx, err.Error())
		}
	}
}

func (cc *connection) replyError(ctx context.Context, text string) {
	if !cc.replyErrs {
		return
	}
	data, err := json.Marshal(Envelope{Type: TypeError, Payload: text})
	if err != nil {
		return
	}
	if err := cc.write(ctx, websocket.MessageText, data); err != nil {
		cc.logger.Debug("Failed to send error frame", "error", err)
	}
}

func (cc *connection) publish(topic pubsub.Topic[events.Session], reason string) {
	if cc.h.bus == nil {
		return
	}
	s := events.Session{
		ClientID: cc.stream.ID(),
		Username: cc.principal.Username,
		At:       time.Now(),
		Reason:   reason,
	}
	if err := pubsub.Publish(context.Background(), cc.h.bus, topic, s.Username, s); err != nil {
		cc.logger.Error("Failed to publish session event", "topic", topic.Name(), "error", err)
	}
}
