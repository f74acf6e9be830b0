package view_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/livechat/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "a-very-secret-key-for-testing-!"

// flashServer queues flashes on /set and reports them on /get.
func flashServer() *echo.Echo {
	e := echo.New()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(testSessionSecret))))
	e.GET("/set", func(c echo.Context) error {
		view.SetFlashSuccess(c, "Signed out")
		view.SetFlashError(c, "Invalid username or password")
		view.SetFlashError(c, "Try again")
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/get", func(c echo.Context) error {
		f := view.GetFlashData(c)
		return c.String(http.StatusOK, strings.Join(f.Success, "|")+";"+strings.Join(f.Error, "|"))
	})
	return e
}

// latest keeps the last Set-Cookie per name, as a browser would.
func latest(cookies []*http.Cookie) []*http.Cookie {
	byName := map[string]*http.Cookie{}
	var order []string
	for _, ck := range cookies {
		if _, seen := byName[ck.Name]; !seen {
			order = append(order, ck.Name)
		}
		byName[ck.Name] = ck
	}
	out := make([]*http.Cookie, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func get(e *echo.Echo, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range latest(cookies) {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestFlashes_SurviveOneRedirect(t *testing.T) {
	e := flashServer()

	set := get(e, "/set", nil)
	cookies := set.Result().Cookies()
	require.NotEmpty(t, cookies)

	first := get(e, "/get", cookies)
	assert.Equal(t, "Signed out;Invalid username or password|Try again", first.Body.String())

	// Reading saves the drained session, so the next request sees nothing.
	second := get(e, "/get", first.Result().Cookies())
	assert.Equal(t, ";", second.Body.String())
}

func TestFlashes_NoneQueued(t *testing.T) {
	rec := get(flashServer(), "/get", nil)
	assert.Equal(t, ";", rec.Body.String())
	assert.Empty(t, rec.Result().Cookies(), "nothing to clear, nothing saved")
}

func TestFlashes_WithoutSessionMiddleware(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.NotPanics(t, func() { view.SetFlashError(c, "lost") })
	assert.True(t, view.GetFlashData(c).Empty())
}

func TestFlashData_Empty(t *testing.T) {
	assert.True(t, view.FlashData{}.Empty())
	assert.False(t, view.FlashData{Error: []string{"x"}}.Empty())
}
