package ws

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
	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/broadcast"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// subscribe espera o pong para garantir que a assinatura já foi processada
func subscribe(t *testing.T, conn *websocket.Conn, eventID string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", EventID: eventID}))
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	var pong map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&pong))
	require.Equal(t, "pong", pong["type"])
}

func read(t *testing.T, conn *websocket.Conn) Update {
	t.Helper()
	var u Update
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&u))
	return u
}

func newServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(func(*http.Request) bool { return true }, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)
	return hub, srv
}

func TestBroadcastReachesRoomOnly(t *testing.T) {
	hub, srv := newServer(t)
	conn := dial(t, srv)
	subscribe(t, conn, "ev-1")
	assert.Equal(t, 1, hub.Subscribers("ev-1"))

	hub.Broadcast(broadcast.Envelope{Topic: "fight_updates", Room: "ev-2", Payload: json.RawMessage(`{"n":2}`)})
	hub.Broadcast(broadcast.Envelope{Topic: "fight_updates", Room: "ev-1", Payload: json.RawMessage(`{"n":1}`)})

	u := read(t, conn)
	assert.Equal(t, "update", u.Type)
	assert.Equal(t, "ev-1", u.EventID)
	assert.JSONEq(t, `{"n":1}`, string(u.Payload))
}

func TestSubscribeAllAndDispatch(t *testing.T) {
	hub, srv := newServer(t)
	conn := dial(t, srv)
	subscribe(t, conn, "")

	Dispatch(hub, zap.NewNop(), "not json")
	Dispatch(hub, zap.NewNop(), `{"topic":"bets_settled","room":"ev-9","payload":{"fight_id":"f"}}`)

	u := read(t, conn)
	assert.Equal(t, "bets_settled", u.Topic)
	assert.Equal(t, "ev-9", u.EventID)
}

func TestDisconnectLeavesRooms(t *testing.T) {
	hub, srv := newServer(t)
	conn := dial(t, srv)
	subscribe(t, conn, "ev-1")
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Subscribers("ev-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
