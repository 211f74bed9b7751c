package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PredictionHub manages WebSocket connections for streaming action
// predictions to clients
type PredictionHub struct {
	// clients maps stream_id -> set of connections
	clients map[string]map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewPredictionHub creates a new prediction hub
func NewPredictionHub() *PredictionHub {
	return &PredictionHub{
		clients: make(map[string]map[*websocket.Conn]bool),
	}
}

// Register adds a connection for a specific stream
func (h *PredictionHub) Register(streamID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[streamID] == nil {
		h.clients[streamID] = make(map[*websocket.Conn]bool)
	}
	h.clients[streamID][conn] = true
	fmt.Printf("[WS] Client registered for stream %s (total: %d)\n", streamID, len(h.clients[streamID]))
}

// Unregister removes a connection for a specific stream
func (h *PredictionHub) Unregister(streamID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[streamID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, streamID)
		}
		fmt.Printf("[WS] Client unregistered for stream %s\n", streamID)
	}
}

// HasClients returns true if there are any clients connected for a stream
func (h *PredictionHub) HasClients(streamID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[streamID]
	return ok && len(conns) > 0
}

// BroadcastToStream sends a message to all clients subscribed to a stream
func (h *PredictionHub) BroadcastToStream(streamID string, message []byte) {
	h.mu.RLock()
	conns := h.clients[streamID]
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	for conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		err := conn.WriteMessage(websocket.TextMessage, message)
		if err != nil {
			fmt.Printf("[WS] Error sending to client: %v\n", err)
			h.Unregister(streamID, conn)
			conn.Close()
		}
	}
}

// BroadcastPrediction sends a scored window to stream subscribers
func (h *PredictionHub) BroadcastPrediction(msg *PredictionMessage) {
	if !h.HasClients(msg.StreamID) {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		fmt.Printf("[WS] Error marshaling prediction message: %v\n", err)
		return
	}
	h.BroadcastToStream(msg.StreamID, data)
}

// BroadcastTrack sends an in-flight tracking update to stream subscribers
func (h *PredictionHub) BroadcastTrack(msg *TrackMessage) {
	if !h.HasClients(msg.StreamID) {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		fmt.Printf("[WS] Error marshaling track message: %v\n", err)
		return
	}
	h.BroadcastToStream(msg.StreamID, data)
}

// BroadcastDone signals batch flush completion to stream subscribers
func (h *PredictionHub) BroadcastDone(streamID string) {
	if !h.HasClients(streamID) {
		return
	}

	data, err := json.Marshal(NewDoneMessage(streamID))
	if err != nil {
		fmt.Printf("[WS] Error marshaling done message: %v\n", err)
		return
	}
	h.BroadcastToStream(streamID, data)
}

// ClientCount returns the total number of connected clients
func (h *PredictionHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.clients {
		count += len(conns)
	}
	return count
}
