package feed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zeusync/wavecore/internal/core/events"
	"github.com/zeusync/wavecore/internal/core/events/bus"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + Path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	return conn
}

func newServer(h *Hub) *httptest.Server {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	return httptest.NewServer(mux)
}

func TestHubBroadcastsEvents(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(8, nil)
	srv := newServer(hub)
	defer srv.Close()

	d := bus.New()
	d.AddObserver(hub)

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Update(time.Second))
	require.NoError(t, hub.Update(time.Second))
	require.NoError(t, d.Publish(events.WaveUpdated{Current: 2, Max: 3}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "wave.updated", msg.Type)
	assert.Equal(t, uint64(2), msg.Tick)

	var wave events.WaveUpdated
	require.NoError(t, json.Unmarshal(msg.Data, &wave))
	assert.Equal(t, events.WaveUpdated{Current: 2, Max: 3}, wave)
	assert.Equal(t, uint64(1), hub.Sent())

	require.NoError(t, hub.Close())
	assert.Equal(t, 0, hub.Clients())

	// The hub closes the connection after Close.
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHubDropsForSlowClients(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(1, nil)
	// A client registered without a writer never drains its buffer.
	stuck := &client{send: make(chan []byte, 1)}
	require.True(t, hub.add(stuck))

	hub.OnPublish("break.queued", events.BreakQueued{})
	hub.OnPublish("break.queued", events.BreakQueued{})
	hub.OnPublish("break.queued", events.BreakQueued{})

	assert.Equal(t, uint64(1), hub.Sent())
	assert.Equal(t, uint64(2), hub.Dropped())

	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())
}

func TestHubRejectsAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(0, nil)
	require.NoError(t, hub.Close())

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHubClientDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(4, nil)
	srv := newServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Close())
}
