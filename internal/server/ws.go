package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient wraps a connection with a write mutex. gorilla/websocket allows
// at most one concurrent writer per connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// EventsHandler streams pipeline events to connected WebSocket clients.
// Frames that produce no events are not sent.
type EventsHandler struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool
}

// NewEventsHandler creates a handler with no connected clients.
func NewEventsHandler() *EventsHandler {
	return &EventsHandler{
		clients: make(map[*wsClient]bool),
	}
}

// ServeHTTP upgrades the connection and registers the client for broadcasts.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		conn.Close()
	}()

	// Drain reads so close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// BroadcastResult sends a frame result to every connected client if it
// carries at least one event.
func (h *EventsHandler) BroadcastResult(result pipeline.FrameResult) {
	if len(result.Gestures) == 0 && len(result.Sequences) == 0 &&
		len(result.Trajectories) == 0 && len(result.Bimanual) == 0 &&
		len(result.Draw) == 0 {
		return
	}
	h.broadcast(result)
}

// ClientCount returns the number of connected clients.
func (h *EventsHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventsHandler) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("websocket marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if err := client.write(data); err != nil {
			log.Printf("websocket write failed: %v", err)
		}
	}
}
