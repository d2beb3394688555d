// Package hub fans room-scoped events out to websocket observers. Delivery
// is best-effort: a slow or dead subscriber is dropped, never waited on, and
// publish failures never affect committed game state. Clients that fall
// behind recover with a full-state resync over the HTTP API.
package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 32
)

// Envelope wraps every published event with its room so receivers can discard
// events for rooms they are not watching.
type Envelope struct {
	RoomID  string `json:"roomId"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks websocket subscribers per room.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]map[*subscriber]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New creates an empty hub.
func New(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:    map[string]map[*subscriber]struct{}{},
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
	}
}

// ServeWS upgrades the request and joins the connection to roomID's stream.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roomID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = map[*subscriber]struct{}{}
		h.rooms[roomID] = subs
	}
	subs[sub] = struct{}{}
	n := len(subs)
	h.mu.Unlock()

	h.logger.Info("ws subscriber joined", zap.String("room_id", roomID), zap.Int("subscribers", n))

	go h.writePump(roomID, sub)
	go h.readPump(roomID, sub)
}

// Publish sends an event to every subscriber of roomID only.
func (h *Hub) Publish(roomID, event string, payload any) {
	data, err := json.Marshal(Envelope{RoomID: roomID, Event: event, Payload: payload})
	if err != nil {
		h.logger.Error("marshal event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.Lock()
	var stale []*subscriber
	for sub := range h.rooms[roomID] {
		select {
		case sub.send <- data:
		default:
			// Subscriber can't keep up; cut it loose.
			stale = append(stale, sub)
		}
	}
	for _, sub := range stale {
		h.dropLocked(roomID, sub)
	}
	h.mu.Unlock()

	if len(stale) > 0 {
		h.logger.Warn("dropped slow ws subscribers",
			zap.String("room_id", roomID),
			zap.String("event", event),
			zap.Int("dropped", len(stale)),
		)
	}
}

// SubscriberCount reports the current observers of a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

func (h *Hub) drop(roomID string, sub *subscriber) {
	h.mu.Lock()
	h.dropLocked(roomID, sub)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(roomID string, sub *subscriber) {
	subs := h.rooms[roomID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.rooms, roomID)
	}
	close(sub.send)
	_ = sub.conn.Close()
}

func (h *Hub) writePump(roomID string, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-sub.send:
			if !ok {
				return
			}
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.drop(roomID, sub)
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(roomID, sub)
				return
			}
		}
	}
}

// readPump discards inbound frames; the stream is one-way. Its job is to
// notice the peer going away.
func (h *Hub) readPump(roomID string, sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.drop(roomID, sub)
			return
		}
	}
}
