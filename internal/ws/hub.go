package ws

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one connected display board.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans occupancy snapshots out to every connected display board. Boards
// are read-only consumers: inbound frames are drained and discarded.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	// Last broadcast payload, replayed to newly connected boards so they do
	// not render blank until the next tick.
	last []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register attaches a connection and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn) {
	c := &Client{conn: conn, send: make(chan []byte, 8)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump(h)
}

// Broadcast sends the payload to every connected board. A board whose send
// buffer is full is dropped rather than allowed to block the rest.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = payload
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Count returns the number of connected boards.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: display connection error: %v", err)
			}
			return
		}
	}
}
