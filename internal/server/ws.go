package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handwheel/internal/session"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is one WebSocket push. Type is "state" or "status".
type Message struct {
	Type      string         `json:"type"`
	State     *session.State `json:"state,omitempty"`
	Status    string         `json:"status,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// Hub fans session updates out to WebSocket clients. A newly connected
// client first receives the latest state message.
//
// Publishing never touches the network: each client has its own send queue
// drained by a writer goroutine, and a client whose queue is full is dropped.
type Hub struct {
	clients map[*client]struct{}
	last    []byte
	mu      sync.Mutex
}

// sendBuffer is the number of messages queued per client.
const sendBuffer = 16

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.last != nil {
		c.send <- h.last
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	defer h.remove(c)

	go c.writeLoop()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writeLoop sends queued messages until the queue is closed or a write fails.
func (c *client) writeLoop() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// The reader loop exits on the closed socket and finishes cleanup
			c.conn.Close()
			return
		}
	}
}

// remove unregisters c and closes its queue, once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// PublishState pushes a state snapshot to every client.
func (h *Hub) PublishState(st session.State) {
	msg, err := json.Marshal(Message{Type: "state", State: &st, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		log.Printf("Error encoding state: %v", err)
		return
	}
	h.broadcast(msg, true)
}

// PublishStatus pushes a status line to every client.
func (h *Hub) PublishStatus(status string) {
	msg, err := json.Marshal(Message{Type: "status", Status: status, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		log.Printf("Error encoding status: %v", err)
		return
	}
	h.broadcast(msg, false)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg []byte, keep bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if keep {
		h.last = msg
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Too slow to keep up
			h.dropLocked(c)
			c.conn.Close()
		}
	}
}
