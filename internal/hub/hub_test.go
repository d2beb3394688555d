package hub_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bidquiz-server/internal/hub"
)

func dial(t *testing.T, h *hub.Hub, roomID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, roomID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) hub.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env hub.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func waitForSubscribers(t *testing.T, h *hub.Hub, roomID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.SubscriberCount(roomID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, want, h.SubscriberCount(roomID))
}

func TestPublishReachesRoomSubscribers(t *testing.T) {
	h := hub.New(zap.NewNop())
	conn := dial(t, h, "room-1")
	waitForSubscribers(t, h, "room-1", 1)

	h.Publish("room-1", "team-updated", map[string]string{"teamId": "t1"})

	env := readEnvelope(t, conn)
	require.Equal(t, "room-1", env.RoomID)
	require.Equal(t, "team-updated", env.Event)
}

func TestPublishIsRoomScoped(t *testing.T) {
	h := hub.New(zap.NewNop())
	connA := dial(t, h, "room-a")
	connB := dial(t, h, "room-b")
	waitForSubscribers(t, h, "room-a", 1)
	waitForSubscribers(t, h, "room-b", 1)

	h.Publish("room-a", "question-locked", map[string]int{"question": 5})
	h.Publish("room-b", "question-locked", map[string]int{"question": 7})

	// Each subscriber sees only its own room's event.
	envA := readEnvelope(t, connA)
	require.Equal(t, "room-a", envA.RoomID)
	envB := readEnvelope(t, connB)
	require.Equal(t, "room-b", envB.RoomID)

	require.NoError(t, connA.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := connA.ReadMessage()
	require.Error(t, err)
}

func TestPublishToEmptyRoomIsNoop(t *testing.T) {
	h := hub.New(zap.NewNop())
	h.Publish("nobody-home", "team-updated", nil)
	require.Equal(t, 0, h.SubscriberCount("nobody-home"))
}

func TestClosedSubscriberIsDropped(t *testing.T) {
	h := hub.New(zap.NewNop())
	conn := dial(t, h, "room-1")
	waitForSubscribers(t, h, "room-1", 1)

	require.NoError(t, conn.Close())
	waitForSubscribers(t, h, "room-1", 0)
}
