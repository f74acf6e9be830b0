package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/livechat/internal/presence"
)

// PresenceHandler reports who is in the room.
type PresenceHandler struct {
	roster   *presence.Roster
	renderer presence.Renderer
}

// NewPresenceHandler creates a presence handler. A nil renderer falls back to
// presence.DefaultRenderer.
func NewPresenceHandler(roster *presence.Roster, renderer presence.Renderer) *PresenceHandler {
	if renderer == nil {
		renderer = presence.DefaultRenderer
	}
	return &PresenceHandler{roster: roster, renderer: renderer}
}

// GetPresence returns the current online users as JSON (GET /online).
func (h *PresenceHandler) GetPresence(c echo.Context) error {
	users := h.roster.Online()
	return c.JSON(http.StatusOK, OnlineResponse{Users: users, Count: len(users)})
}

// GetPresenceHTML returns the presence list as an htmx fragment
// (GET /online/fragment).
func (h *PresenceHandler) GetPresenceHTML(c echo.Context) error {
	return c.Render(http.StatusOK, "", h.renderer(h.roster.Online()))
}
