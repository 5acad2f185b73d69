package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event types pushed to clients.
const (
	EventWelcome = "welcome"
	EventState   = "state"
)

const writeWait = 2 * time.Second

// Event is one message on the events stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local UI only
	},
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub fans state events out to connected WebSocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*wsClient
	initial func() any
}

// NewHub creates a hub. initial, if set, provides the state sent to each new client.
func NewHub(initial func() any) *Hub {
	return &Hub{clients: make(map[string]*wsClient), initial: initial}
}

// SetInitial replaces the provider of the state sent on connect.
func (h *Hub) SetInitial(fn func() any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initial = fn
}

// Broadcast sends an event to every client. Clients that fail to accept it are dropped.
func (h *Hub) Broadcast(eventType string, data any) {
	b, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		slog.Error("Failed to encode event", "type", eventType, "error", err)
		return
	}

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.write(b); err != nil {
			slog.Debug("Dropping event client", "client", c.id, "error", err)
			h.remove(c)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

// ServeHTTP handles GET /api/events.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{id: uuid.NewString(), conn: conn}
	slog.Debug("Event client connected", "client", c.id)

	welcome, _ := json.Marshal(Event{Type: EventWelcome, Data: map[string]string{"client": c.id}})
	if err := c.write(welcome); err != nil {
		_ = conn.Close()
		return
	}
	h.mu.Lock()
	initial := h.initial
	h.mu.Unlock()
	if initial != nil {
		if b, err := json.Marshal(Event{Type: EventState, Data: initial()}); err == nil {
			if err := c.write(b); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
	h.add(c)

	// Incoming messages are ignored; the loop only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	slog.Debug("Event client disconnected", "client", c.id)
}
