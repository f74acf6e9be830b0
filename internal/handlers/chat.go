package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/livechat/internal/chat"
	"github.com/nfrund/livechat/internal/middleware"
	"github.com/nfrund/livechat/internal/presence"
	"github.com/nfrund/livechat/internal/view"
)

// ChatHandler serves the chat room page and the HTTP fallback for posting.
type ChatHandler struct {
	svc    *chat.Service
	roster *presence.Roster
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc *chat.Service, roster *presence.Roster) *ChatHandler {
	return &ChatHandler{svc: svc, roster: roster}
}

// ChatGet renders the room for the signed-in user (GET /).
func (h *ChatHandler) ChatGet(c echo.Context) error {
	data := view.ChatData{
		Username: middleware.PrincipalFrom(c).Username,
		Online:   h.roster.Online(),
		Flash:    view.GetFlashData(c),
	}
	return c.Render(http.StatusOK, "", view.ChatPage(data))
}

// MessagePost adds a line for the signed-in user (POST /messages). htmx
// requests get the rendered fragment, everything else JSON.
func (h *ChatHandler) MessagePost(c echo.Context) error {
	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "could not read message"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "empty_message", Message: "message text is required"})
	}

	msg, err := h.svc.Add(middleware.PrincipalFrom(c), req.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "empty_message", Message: err.Error()})
	case errors.Is(err, chat.ErrMessageTooLong):
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Code: "message_too_long", Message: err.Error()})
	case err != nil:
		return err
	}

	if c.Request().Header.Get("HX-Request") != "" {
		return c.Render(http.StatusCreated, "", view.MessageFragment(msg))
	}
	return c.JSON(http.StatusCreated, NewMessageResponse(msg))
}
