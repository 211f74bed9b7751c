package ws

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		// In production, this should be more restrictive
		return true
	},
}

// Handler handles WebSocket connections for prediction streaming
type Handler struct {
	hub *PredictionHub
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *PredictionHub) *Handler {
	return &Handler{hub: hub}
}

// ServeHTTP handles WebSocket upgrade requests
// Expected URL format: /ws/predictions/{stream_id}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/ws/predictions/")
	streamID := strings.TrimSuffix(path, "/")

	if streamID == "" {
		http.Error(w, "stream_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("[WS] Upgrade error: %v\n", err)
		return
	}

	fmt.Printf("[WS] New connection for stream %s from %s\n", streamID, r.RemoteAddr)

	h.hub.Register(streamID, conn)

	// Keep the connection alive and detect disconnection
	go h.readPump(streamID, conn)
}

// readPump reads messages from the WebSocket connection
// This keeps the connection alive and handles client disconnection
func (h *Handler) readPump(streamID string, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(streamID, conn)
		conn.Close()
	}()

	// Configure connection
	conn.SetReadLimit(512) // Small limit since client shouldn't send much
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Start ping ticker
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	// Read loop - mainly to detect disconnection
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WS] Read error for stream %s: %v\n", streamID, err)
			}
			break
		}
	}
}
