// Package ws broadcasts detection results and stats snapshots to
// presentation clients over WebSocket.
package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DetectionHub manages WebSocket connections for real-time detection
// streaming.
type DetectionHub struct {
	clients map[*websocket.Conn]bool
	logger  *log.Logger
	mu      sync.RWMutex
}

// NewDetectionHub creates a new detection hub
func NewDetectionHub(logger *log.Logger) *DetectionHub {
	if logger == nil {
		logger = log.Default()
	}
	return &DetectionHub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// Register adds a client connection
func (h *DetectionHub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Printf("[WS] Client registered (total: %d)", total)
}

// Unregister removes a client connection
func (h *DetectionHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		h.logger.Printf("[WS] Client unregistered")
	}
	h.mu.Unlock()
}

// HasClients returns true if any client is connected
func (h *DetectionHub) HasClients() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) > 0
}

// ClientCount returns the number of connected clients
func (h *DetectionHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to all connected clients, dropping clients whose
// writes fail.
func (h *DetectionHub) Broadcast(message []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Printf("[WS] Error sending to client: %v", err)
			h.Unregister(conn)
			conn.Close()
		}
	}
}

// BroadcastDetections sends a detection message to all clients
func (h *DetectionHub) BroadcastDetections(msg *DetectionMessage) {
	h.broadcastJSON(msg)
}

// BroadcastStats sends a stats snapshot to all clients
func (h *DetectionHub) BroadcastStats(msg *StatsMessage) {
	h.broadcastJSON(msg)
}

// BroadcastStatus sends a status line to all clients
func (h *DetectionHub) BroadcastStatus(msg *StatusMessage) {
	h.broadcastJSON(msg)
}

func (h *DetectionHub) broadcastJSON(msg interface{}) {
	if !h.HasClients() {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	h.Broadcast(data)
}
