package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local-only server
	},
}

// SnapshotHub broadcasts per-frame engine snapshots to WebSocket clients.
// The detection pipeline pushes into it; the hub never reads the camera
// itself, so the debug feed observes exactly what the engine saw.
type SnapshotHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewSnapshotHub creates an empty hub.
func NewSnapshotHub() *SnapshotHub {
	return &SnapshotHub{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away.
func (h *SnapshotHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Drain incoming messages to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish marshals v once and sends it to every connected client. Clients
// whose write fails are dropped. Publishing with no clients is free, so
// the pipeline can call this unconditionally.
func (h *SnapshotHub) Publish(v interface{}) {
	h.mu.RLock()
	empty := len(h.clients) == 0
	h.mu.RUnlock()
	if empty {
		return
	}

	msg, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *SnapshotHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
