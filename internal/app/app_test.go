package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nfrund/livechat/internal/chat"
	"github.com/nfrund/livechat/internal/config"
	"github.com/nfrund/livechat/internal/presence"
	"github.com/nfrund/livechat/internal/testutils"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return testutils.ConfigForTests(t)
}

func TestApp_ServerServesHealth(t *testing.T) {
	a := New(testConfig(t), afero.NewMemMapFs())
	s, err := a.Server()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, a.Shutdown(context.Background()))
}

func TestApp_UsersFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/users.json",
		[]byte(`[{"username":"ada","password":"lovelace"}]`), 0o644))

	cfg := testConfig(t)
	cfg.UsersFile = "/users.json"
	a := New(cfg, fs)
	defer func() { _ = a.Shutdown(context.Background()) }()

	dir, err := do.Invoke[*directoryService](a.injector)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada"}, dir.Usernames())

	t.Run("missing file fails the build", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.UsersFile = "/nope.json"
		b := New(cfg, fs)
		_, err := b.Server()
		assert.Error(t, err)
	})
}

func TestApp_ShutdownClosesStreams(t *testing.T) {
	a := New(testConfig(t), afero.NewMemMapFs())
	_, err := a.Server()
	require.NoError(t, err)

	svc := do.MustInvoke[*chatService](a.injector)
	roster := do.MustInvoke[*presence.Roster](a.injector)
	assert.Empty(t, roster.Online())

	stream, err := svc.Join()
	require.NoError(t, err)
	_, err = svc.Add(chat.Named("josh"), "hello")
	require.NoError(t, err)

	select {
	case m := <-stream.Messages():
		assert.Equal(t, "josh", m.Username)
		assert.Equal(t, "hello", m.Text)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	require.NoError(t, a.Shutdown(context.Background()))

	_, open := <-stream.Messages()
	assert.False(t, open, "shutdown closes chat streams")
}
