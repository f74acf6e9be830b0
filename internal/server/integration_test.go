package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	gorillaws "github.com/gorilla/websocket"
	"github.com/nfrund/livechat/internal/auth"
	"github.com/nfrund/livechat/internal/chat"
	"github.com/nfrund/livechat/internal/handlers"
	"github.com/nfrund/livechat/internal/presence"
	"github.com/nfrund/livechat/internal/pubsub"
	"github.com/nfrund/livechat/internal/rendering"
	"github.com/nfrund/livechat/internal/server"
	"github.com/nfrund/livechat/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	srv    *httptest.Server
	chat   *chat.Service
	roster *presence.Roster
}

func setupIntegrationTest(t *testing.T) *harness {
	t.Helper()

	cfg := testutils.ConfigForTests(t)

	dir, err := auth.NewDirectory(auth.DefaultUsers())
	require.NoError(t, err)

	bus := pubsub.NewBridge()
	ctx, cancel := context.WithCancel(context.Background())
	roster := presence.NewRoster(nil)
	require.NoError(t, roster.Start(ctx, bus))

	svc := chat.NewService(chat.ServiceConfig{
		Buffer:           cfg.ChatBuffer,
		MaxSubscribers:   cfg.ChatMaxSubscribers,
		MaxMessageLength: cfg.ChatMaxMessageLength,
	})

	s, err := server.New(server.Dependencies{
		Config:    cfg,
		Directory: dir,
		Chat:      svc,
		Roster:    roster,
		Bus:       bus,
		Renderer:  rendering.NewUniversalRenderer(),
	})
	require.NoError(t, err)
	s.RegisterRoutes()

	ts := httptest.NewServer(s.E)
	t.Cleanup(func() {
		svc.Close()
		ts.Close()
		cancel()
		_ = bus.Close()
	})
	return &harness{srv: ts, chat: svc, roster: roster}
}

// signIn returns an HTTP client whose cookie jar holds a session for username.
func (h *harness) signIn(t *testing.T, username string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.PostForm(h.srv.URL+"/login", url.Values{
		"username": {username},
		"password": {"pw"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
	return client
}

func (h *harness) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http") + path
}

func TestServer_Health(t *testing.T) {
	h := setupIntegrationTest(t)

	resp, err := http.Get(h.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestServer_StaticAssets(t *testing.T) {
	h := setupIntegrationTest(t)

	resp, err := http.Get(h.srv.URL + "/static/app.css")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ChatPageRequiresLogin(t *testing.T) {
	h := setupIntegrationTest(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(h.srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, err = client.Get(h.srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestServer_SocketEndToEnd(t *testing.T) {
	h := setupIntegrationTest(t)
	joshClient := h.signIn(t, "josh")
	marcusClient := h.signIn(t, "marcus")

	// josh connects with gorilla/websocket, marcus with coder/websocket.
	dialer := gorillaws.Dialer{Jar: joshClient.Jar, HandshakeTimeout: 5 * time.Second}
	josh, resp, err := dialer.Dial(h.wsURL("/ws"), nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer josh.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	u, err := url.Parse(h.srv.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range marcusClient.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}
	marcus, _, err := websocket.Dial(ctx, h.wsURL("/ws"), &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	defer marcus.CloseNow()

	require.Eventually(t, func() bool {
		return h.chat.Stats().Subscribers == 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, josh.WriteJSON(map[string]any{
		"text":    "hi",
		"HEADERS": map[string]string{"HX-Request": "true"},
	}))

	require.NoError(t, josh.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := josh.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(frame), `<span class="user">josh</span>`)

	_, frame, err = marcus.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(frame), `<span class="text">hi</span>`)

	assert.Eventually(t, func() bool {
		online := h.roster.Online()
		return len(online) == 2 && online[0] == "josh" && online[1] == "marcus"
	}, 2*time.Second, 10*time.Millisecond)

	resp2, err := joshClient.Get(h.srv.URL + "/online")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var online handlers.OnlineResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&online))
	assert.Equal(t, 2, online.Count)

	require.NoError(t, marcus.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool {
		return h.roster.Connections("marcus") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_LateJoinerSeesOnlyNewMessages(t *testing.T) {
	h := setupIntegrationTest(t)
	client := h.signIn(t, "tiffany")

	// A line posted over HTTP before anyone is connected is not replayed.
	resp, err := client.PostForm(h.srv.URL+"/messages", url.Values{"text": {"before"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	dialer := gorillaws.Dialer{Jar: client.Jar}
	conn, r, err := dialer.Dial(h.wsURL("/ws/data"), nil)
	require.NoError(t, err)
	r.Body.Close()
	defer conn.Close()
	require.Eventually(t, func() bool {
		return h.chat.Stats().Subscribers == 1
	}, 2*time.Second, 5*time.Millisecond)

	resp, err = client.PostForm(h.srv.URL+"/messages", url.Values{"text": {"after"}})
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env struct {
		Type    string       `json:"type"`
		Payload chat.Message `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "after", env.Payload.Text)
	assert.Equal(t, "tiffany", env.Payload.Username)
}

func TestServer_LoginRateLimited(t *testing.T) {
	h := setupIntegrationTest(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	var last int
	for i := 0; i < 11; i++ {
		resp, err := client.PostForm(h.srv.URL+"/login", url.Values{"username": {"josh"}, "password": {"bad"}})
		require.NoError(t, err)
		resp.Body.Close()
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
