package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"ai-compass/internal/middleware"

	"github.com/gorilla/websocket"
)

// Event is a community update pushed to websocket clients
type Event map[string]interface{}

// Client represents a websocket connection; userID is empty for guests
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan Event
}

// Hub maintains active clients and broadcasts
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	// broadcast channel for safe message dispatch
	broadcast chan Event
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]bool),
		broadcast: make(chan Event, 64),
	}
}

func (h *Hub) AddClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for every client; it is dropped when the queue is full
func (h *Hub) Broadcast(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
		log.Printf("ws: broadcast queue full, dropping %v event", ev["type"])
	}
}

// Run listens on broadcast channel and dispatches messages to clients safely.
func (h *Hub) Run() {
	for ev := range h.broadcast {
		// send under the read lock so RemoveClient cannot close a channel mid-send
		h.mu.RLock()
		for c := range h.clients {
			select {
			case c.send <- ev:
			default:
				// drop if client's send buffer is full
			}
		}
		h.mu.RUnlock()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the connection and streams community events to it
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	client := &Client{userID: middleware.GetUserID(r), conn: conn, send: make(chan Event, 16)}
	h.AddClient(client)
	log.Printf("WebSocket: client %q connected", client.userID)

	client.conn.WriteJSON(Event{"type": "init", "user_id": client.userID})

	go h.writerLoop(client)
	h.readerLoop(client)
}

func (h *Hub) writerLoop(c *Client) {
	ticker := time.NewTicker(25 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readerLoop only keeps the connection alive; clients do not send events
func (h *Hub) readerLoop(c *Client) {
	defer func() {
		h.RemoveClient(c)
		log.Printf("WebSocket: client %q disconnected", c.userID)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
