package server

import (
	"github.com/nfrund/livechat/internal/handlers"
	"github.com/nfrund/livechat/internal/middleware"
	"github.com/nfrund/livechat/internal/websocket"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	authHandler := handlers.NewAuthHandler(s.directory)
	chatHandler := handlers.NewChatHandler(s.chat, s.roster)
	presenceHandler := handlers.NewPresenceHandler(s.roster, nil)
	healthHandler := handlers.NewHealthHandler(s.chat)
	socketHandler := websocket.NewHandler(s.chat, s.bus, s.renderer,
		websocket.WithOriginPatterns(s.Cfg.AllowedOrigins...))
	rateLimiter := middleware.RateLimiter()

	s.E.GET("/health", healthHandler.HealthGet)

	s.E.GET("/login", authHandler.LoginGet)
	s.E.POST("/login", authHandler.LoginPost, rateLimiter)
	s.E.GET("/logout", authHandler.Logout)

	app := s.E.Group("", middleware.RequireUser(s.directory))
	app.GET("/", chatHandler.ChatGet)
	app.POST("/messages", chatHandler.MessagePost)
	app.GET("/online", presenceHandler.GetPresence)
	app.GET("/online/fragment", presenceHandler.GetPresenceHTML)
	app.GET("/ws", socketHandler.ServeHTML)
	app.GET("/ws/data", socketHandler.ServeData)
}
