package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cinema/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Hub, *auth.TokenIssuer, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	t.Cleanup(hub.Stop)

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, tokens) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, tokens, srv
}

func TestServeWs_RejectsBadTokens(t *testing.T) {
	_, tokens, srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, err = http.Get(srv.URL + "/ws?token=garbage")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	roleless, _, err := tokens.Issue(4, "nobody", nil)
	require.NoError(t, err)
	res, err = http.Get(srv.URL + "/ws?token=" + roleless)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub, tokens, srv := newTestServer(t)

	token, _, err := tokens.Issue(7, "alice", []string{"USER"})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("TICKETS_SOLD", map[string]interface{}{"session_id": 3, "available": 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "TICKETS_SOLD", ev.Type)
	assert.EqualValues(t, 3, ev.Data["session_id"])
}
