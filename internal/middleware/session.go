package middleware

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/livechat/internal/auth"
)

const (
	// UserContextKey is the echo context key holding the *auth.Principal.
	UserContextKey = "user"

	sessionName    = "livechat-session"
	sessionUserKey = "username"
	sessionMaxAge  = 7 * 24 * 60 * 60
	loginPath      = "/login"
)

// ErrNoSession is returned when the session middleware is not installed.
var ErrNoSession = errors.New("session store not available")

// SignIn stores username in the viewer's session cookie.
func SignIn(c echo.Context, username string) error {
	sess, err := session.Get(sessionName, c)
	if sess == nil {
		return errors.Join(ErrNoSession, err)
	}
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	sess.Values[sessionUserKey] = username
	return sess.Save(c.Request(), c.Response())
}

// SignOut clears the viewer's session.
func SignOut(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if sess == nil {
		return errors.Join(ErrNoSession, err)
	}
	delete(sess.Values, sessionUserKey)
	sess.Options = &sessions.Options{Path: "/", MaxAge: -1}
	return sess.Save(c.Request(), c.Response())
}

// SessionUser returns the username stored in the session, or "".
func SessionUser(c echo.Context) string {
	sess, _ := session.Get(sessionName, c)
	if sess == nil {
		return ""
	}
	username, _ := sess.Values[sessionUserKey].(string)
	return username
}

// RequireUser protects routes that need a signed-in viewer. Browsers are
// redirected to the login page; htmx and websocket requests get 401.
// The user is looked up on every request so removing them from the
// directory ends their access.
func RequireUser(dir *auth.Directory) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := dir.Lookup(SessionUser(c))
			if !ok {
				req := c.Request()
				if req.Header.Get("HX-Request") != "" || req.Header.Get(echo.HeaderUpgrade) != "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "sign in required")
				}
				return c.Redirect(http.StatusSeeOther, loginPath)
			}

			c.Set(UserContextKey, &auth.Principal{Username: user.Username})
			return next(c)
		}
	}
}

// PrincipalFrom returns the signed-in principal set by RequireUser, or nil.
func PrincipalFrom(c echo.Context) *auth.Principal {
	p, _ := c.Get(UserContextKey).(*auth.Principal)
	return p
}
