// Package render pushes storefront views to connected UI clients over
// websockets.
package render

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blackmarket/internal/logger"
	"blackmarket/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Envelope is the frame written to every client.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans views out to all clients and remembers the latest one so new
// clients start from current state.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	last     []byte
	upgrader websocket.Upgrader
	frames   int64
}

// NewHub returns a hub accepting websocket upgrades from allowedOrigin. "*"
// or an empty value accepts any origin.
func NewHub(allowedOrigin string) *Hub {
	h := &Hub{clients: make(map[*client]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" || allowedOrigin == "*" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		},
	}
	return h
}

// Render implements session.Renderer. It never blocks: slow clients miss
// frames rather than stall the session loop.
func (h *Hub) Render(v session.View) {
	out, err := encode("view", v)
	if err != nil {
		logger.LogError("Failed to encode view: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = out
	h.frames++
	for c := range h.clients {
		select {
		case c.send <- out:
		default:
			logger.LogWarn("Render client lagging, frame dropped")
		}
	}
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Frames is the number of views rendered since start.
func (h *Hub) Frames() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

// ServeHTTP upgrades the request and streams views until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.LogWarn("Websocket upgrade failed from %s: %v", logger.GetClientIP(r), err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()
	logger.LogInfo("Render client connected from %s", logger.GetClientIP(r))

	go c.writer()
	c.reader()

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	logger.LogInfo("Render client disconnected")
}

// reader drains client frames so pongs and close messages are processed.
// Clients send actions over HTTP, not over this socket.
func (c *client) reader() {
	defer c.conn.Close()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.LogDebug("Render client read error: %v", err)
			}
			return
		}
	}
}

func (c *client) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(typ string, v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: typ, Data: data})
}
