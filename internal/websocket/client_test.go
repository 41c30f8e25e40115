package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sketchsync/internal/domain"
	"sketchsync/internal/wire"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialPumps serves one connection for viewerID through real pumps and
// returns the viewer's end of it.
func dialPumps(t *testing.T, m *Manager, viewerID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient("c-"+viewerID, viewerID, conn, m)
		m.Register <- c
		go c.WritePump()
		go c.ReadPump()
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return m.GetViewerConnections(viewerID) == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessages(t *testing.T, conn *websocket.Conn, want int) []wire.Message {
	t.Helper()
	var got []wire.Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for len(got) < want {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		msgs, err := wire.DecodeFrame(frame)
		require.NoError(t, err)
		got = append(got, msgs...)
	}
	return got
}

func TestClient_PingOverConnection(t *testing.T) {
	m := startManager(t)
	conn := dialPumps(t, m, "viewer-a")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	got := readMessages(t, conn, 1)
	assert.Equal(t, wire.TypePong, got[0].Type)
}

func TestClient_UndecodableFrameKeepsConnection(t *testing.T) {
	m := startManager(t)
	conn := dialPumps(t, m, "viewer-a")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`[{"type":"ping"},{"type":"ping"}]`)))

	got := readMessages(t, conn, 2)
	assert.Equal(t, wire.TypePong, got[0].Type)
	assert.Equal(t, wire.TypePong, got[1].Type)
}

func TestClient_BroadcastsArriveAsArrayFrames(t *testing.T) {
	m := startManager(t)
	conn := dialPumps(t, m, "viewer-b")

	for i := int64(0); i < 5; i++ {
		msg, err := wire.NewMessage(wire.TypePointsAdded, &wire.PointsAddedPayload{
			ViewerID: "viewer-a",
			Points:   domain.PointSequence{domain.NewPoint(i, 1, 1)},
		})
		require.NoError(t, err)
		require.NoError(t, m.Broadcast(msg, "viewer-a"))
	}

	got := readMessages(t, conn, 5)
	for i, msg := range got {
		var payload wire.PointsAddedPayload
		require.NoError(t, msg.UnmarshalPayload(&payload))
		require.Len(t, payload.Points, 1)
		assert.Equal(t, int64(i), payload.Points[0].ID)
	}
}

func TestClient_DrainStopsAtClose(t *testing.T) {
	c := NewClient("c1", "viewer-a", nil, nil)
	c.Send <- []byte(`{"type":"pong"}`)
	close(c.Send)

	batch, closed := c.drain([]byte(`{"type":"ping"}`))

	assert.Len(t, batch, 2)
	assert.True(t, closed)
}

func TestClient_DrainCapsBatch(t *testing.T) {
	c := NewClient("c1", "viewer-a", nil, nil)
	for i := 0; i < maxFrameMessages+10; i++ {
		c.Send <- []byte(`{"type":"pong"}`)
	}

	batch, closed := c.drain([]byte(`{"type":"pong"}`))

	assert.Len(t, batch, maxFrameMessages)
	assert.False(t, closed)
	assert.Equal(t, 11, len(c.Send))
}
