package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub pushes navigation updates to websocket subscribers.
//
// Slow clients are dropped rather than allowed to stall the stream: each
// client has a small send queue, and a full queue closes the connection.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// Broadcast marshals v and queues it to every subscriber.
func (h *Hub) Broadcast(v any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			return
		}

		c := &hubClient{conn: conn, send: make(chan []byte, 16)}
		h.mu.Lock()
		h.clients[c] = struct{}{}
		h.mu.Unlock()

		go h.writePump(c)
		go h.readPump(c)
	})
}

func (h *Hub) writePump(c *hubClient) {
	defer func() { _ = c.conn.Close() }()
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			h.drop(c)
			return
		}
	}
}

// readPump discards inbound messages and detects disconnects.
func (h *Hub) readPump(c *hubClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			_ = c.conn.Close()
			return
		}
	}
}

func (h *Hub) drop(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}
