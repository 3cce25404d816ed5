package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zeroai/internal/models"
	"zeroai/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNewServer_RequiresCollaborators(t *testing.T) {
	_, err := NewServer(testConfig(t), Deps{})
	assert.Error(t, err)
}

func TestLivenessCheck(t *testing.T) {
	env := newTestEnv(t, false)
	status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"up"`)
}

func TestReadinessCheck(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		env := newTestEnv(t, false)
		status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Contains(t, string(body), `"database":"unavailable"`)
	})

	t.Run("sqlite and redis healthy", func(t *testing.T) {
		env := newTestEnv(t, true)
		db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
		require.NoError(t, err)
		env.server.db = db

		status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, status, string(body))
		assert.Contains(t, string(body), `"redis":"healthy"`)
	})

	t.Run("redis down", func(t *testing.T) {
		env := newTestEnv(t, true)
		db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
		require.NoError(t, err)
		env.server.db = db
		require.NoError(t, env.rdb.Close())

		status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Contains(t, string(body), `"redis":"unhealthy"`)
	})
}

func TestTimelineStream_RequiresRedisAndUpgrade(t *testing.T) {
	env := newTestEnv(t, false)
	status, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/ws/timeline", nil))
	assert.Equal(t, http.StatusServiceUnavailable, status)

	env = newTestEnv(t, true)
	status, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/ws/timeline", nil))
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestTimelineStream_ReceivesPostCreated(t *testing.T) {
	env := newTestEnv(t, true)
	author := env.seedUser(t, "ada")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, env.server.hub.Start(ctx, env.server.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.Shutdown() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws/timeline", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return env.server.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	status, body := env.do(t, uploadRequest(t, testutil.TinyPNG(), map[string]string{"authorId": author.ID}))
	require.Equal(t, http.StatusCreated, status, string(body))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event models.TimelineEvent
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, models.EventPostCreated, event.Type)
	require.NotNil(t, event.Post)
	assert.Equal(t, author.ID, event.Post.AuthorID)

	require.NoError(t, env.server.Shutdown(context.Background()))
	assert.Equal(t, 0, env.server.hub.Count())
}
