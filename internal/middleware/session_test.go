package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/livechat/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-very-secret-key-for-testing-!"

func newTestServer(t *testing.T) (*echo.Echo, *auth.Directory) {
	t.Helper()
	dir, err := auth.NewDirectory(auth.DefaultUsers())
	require.NoError(t, err)

	e := echo.New()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(testSecret))))

	e.POST("/signin/:name", func(c echo.Context) error {
		if err := SignIn(c, c.Param("name")); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.POST("/signout", func(c echo.Context) error {
		if err := SignOut(c); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/private", func(c echo.Context) error {
		return c.String(http.StatusOK, PrincipalFrom(c).Username)
	}, RequireUser(dir))

	return e, dir
}

func do(e *echo.Echo, method, path string, cookies []*http.Cookie, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireUser(t *testing.T) {
	e, _ := newTestServer(t)

	t.Run("redirects anonymous browsers", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/private", nil, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	})

	t.Run("rejects anonymous htmx and socket requests", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/private", nil, map[string]string{"HX-Request": "true"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = do(e, http.MethodGet, "/private", nil, map[string]string{"Upgrade": "websocket"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("admits signed in users", func(t *testing.T) {
		login := do(e, http.MethodPost, "/signin/josh", nil, nil)
		require.Equal(t, http.StatusNoContent, login.Code)

		rec := do(e, http.MethodGet, "/private", login.Result().Cookies(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "josh", rec.Body.String())
	})

	t.Run("unknown user in session is rejected", func(t *testing.T) {
		login := do(e, http.MethodPost, "/signin/mallory", nil, nil)
		rec := do(e, http.MethodGet, "/private", login.Result().Cookies(), nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("sign out clears the session", func(t *testing.T) {
		login := do(e, http.MethodPost, "/signin/josh", nil, nil)
		out := do(e, http.MethodPost, "/signout", login.Result().Cookies(), nil)
		require.Equal(t, http.StatusNoContent, out.Code)

		cookies := out.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Negative(t, cookies[0].MaxAge)
	})
}

func TestSignIn_WithoutSessionMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.ErrorIs(t, SignIn(c, "josh"), ErrNoSession)
	assert.Nil(t, PrincipalFrom(c))
}
