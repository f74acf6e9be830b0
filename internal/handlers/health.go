package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/livechat/internal/chat"
)

// HealthHandler reports liveness (GET /health).
type HealthHandler struct {
	svc *chat.Service
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(svc *chat.Service) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// HealthGet always answers 200 while the process serves requests.
func (h *HealthHandler) HealthGet(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Chat: h.svc.Stats()})
}
