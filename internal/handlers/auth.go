package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/livechat/internal/auth"
	"github.com/nfrund/livechat/internal/middleware"
	"github.com/nfrund/livechat/internal/view"
)

// AuthHandler handles sign in and sign out.
type AuthHandler struct {
	dir *auth.Directory
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(dir *auth.Directory) *AuthHandler {
	return &AuthHandler{dir: dir}
}

// LoginGet renders the login page (GET /login).
func (h *AuthHandler) LoginGet(c echo.Context) error {
	if _, ok := h.dir.Lookup(middleware.SessionUser(c)); ok {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	data := view.LoginData{
		Username: c.QueryParam("username"),
		Flash:    view.GetFlashData(c),
	}
	return c.Render(http.StatusOK, "", view.LoginPage(data))
}

// LoginPost authenticates the form and starts a session (POST /login).
func (h *AuthHandler) LoginPost(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		view.SetFlashError(c, "Could not read the login form.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	if err := c.Validate(&req); err != nil {
		view.SetFlashError(c, "Username and password are required.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	user, err := h.dir.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			view.SetFlashError(c, "Invalid username or password.")
		} else {
			slog.Error("Error authenticating user", "error", err)
			view.SetFlashError(c, "Could not sign you in.")
		}
		return c.Redirect(http.StatusSeeOther, "/login?username="+url.QueryEscape(req.Username))
	}

	if err := middleware.SignIn(c, user.Username); err != nil {
		slog.Error("Failed to save session", "error", err)
		view.SetFlashError(c, "Could not sign you in.")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	slog.Info("User signed in", "user", user.Username)
	return c.Redirect(http.StatusSeeOther, "/")
}

// Logout ends the session (GET /logout).
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := middleware.SignOut(c); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
	view.SetFlashSuccess(c, "You have been signed out.")
	return c.Redirect(http.StatusSeeOther, "/login")
}
