package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/livechat/internal/auth"
	"github.com/nfrund/livechat/internal/chat"
	"github.com/nfrund/livechat/internal/config"
	"github.com/nfrund/livechat/internal/handlers"
	appmiddleware "github.com/nfrund/livechat/internal/middleware"
	"github.com/nfrund/livechat/internal/presence"
	"github.com/nfrund/livechat/internal/pubsub"
	"github.com/nfrund/livechat/internal/rendering"
	"github.com/nfrund/livechat/web"
)

// Dependencies holds everything the server needs. Echo is optional.
type Dependencies struct {
	Config    *config.Config
	Directory *auth.Directory
	Chat      *chat.Service
	Roster    *presence.Roster
	Bus       pubsub.Publisher
	Renderer  *rendering.UniversalRenderer
	Echo      *echo.Echo
}

func (d Dependencies) validate() error {
	var missing []string
	if d.Config == nil {
		missing = append(missing, "Config")
	}
	if d.Directory == nil {
		missing = append(missing, "Directory")
	}
	if d.Chat == nil {
		missing = append(missing, "Chat")
	}
	if d.Roster == nil {
		missing = append(missing, "Roster")
	}
	if d.Renderer == nil {
		missing = append(missing, "Renderer")
	}
	if len(missing) > 0 {
		return fmt.Errorf("server: missing dependencies %v", missing)
	}
	return nil
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	E         *echo.Echo
	Cfg       *config.Config
	directory *auth.Directory
	chat      *chat.Service
	roster    *presence.Roster
	bus       pubsub.Publisher
	renderer  *rendering.UniversalRenderer
}

// New creates a Server with its middleware stack configured. Routes are
// added by RegisterRoutes.
func New(deps Dependencies) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	e := deps.Echo
	if e == nil {
		e = echo.New()
	}
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = deps.Renderer
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmiddleware.Logger)
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	store := sessions.NewCookieStore([]byte(deps.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	e.Use(session.Middleware(store))

	e.StaticFS("/static", echo.MustSubFS(web.FS, "static"))

	return &Server{
		E:         e,
		Cfg:       deps.Config,
		directory: deps.Directory,
		chat:      deps.Chat,
		roster:    deps.Roster,
		bus:       deps.Bus,
		renderer:  deps.Renderer,
	}, nil
}

// setupErrorHandling installs an error handler that logs unhandled errors
// with a stack trace before delegating to echo's default handler.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		// Middleware that already wrote its own response (the rate limiter's
		// deny handler) ends with a nil error.
		if err == nil || c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if !errors.As(err, &he) {
			slog.Error("Internal Server Error (Unhandled)",
				"error", err.Error(),
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"stack_trace", string(debug.Stack()),
			)
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}
