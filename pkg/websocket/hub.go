// pkg/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Message represents the standard message format exchanged over WebSocket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64

	TypeViewerCount = "viewer_count"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Authorizer rejects a websocket request before the upgrade.
type Authorizer func(r *http.Request) error

// Hub fans quiz events out to the clients watching each quiz.
// Registration goes through Run; rooms is guarded by mu for Publish.
type Hub struct {
	rooms      map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	authorize  Authorizer
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	quizID uint
}

func NewHub(authorize Authorizer) *Hub {
	return &Hub{
		rooms:      make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		authorize:  authorize,
	}
}

// Run owns client registration until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.quizID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.quizID] = room
			}
			room[client] = true
			count := len(room)
			h.mu.Unlock()
			log.Printf("websocket client joined quiz %d (%d watching)", client.quizID, count)
			h.Publish(client.quizID, TypeViewerCount, map[string]int{"count": count})

		case client := <-h.unregister:
			h.mu.Lock()
			count, removed := h.remove(client)
			h.mu.Unlock()
			if removed {
				log.Printf("websocket client left quiz %d (%d watching)", client.quizID, count)
				h.Publish(client.quizID, TypeViewerCount, map[string]int{"count": count})
			}

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, room := range h.rooms {
				for client := range room {
					close(client.send)
				}
			}
			h.rooms = make(map[uint]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) (int, bool) {
	room, ok := h.rooms[client.quizID]
	if !ok || !room[client] {
		return 0, false
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.quizID)
	}
	return len(room), true
}

// Publish sends an event to every client in the quiz room. Slow clients are dropped.
func (h *Hub) Publish(quizID uint, messageType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		log.Printf("websocket: marshal %s event: %v", messageType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.rooms[quizID] {
		select {
		case client.send <- payload:
		default:
			log.Printf("websocket: send buffer full for client in quiz %d; dropping it", quizID)
			h.remove(client)
		}
	}
}

// Watchers returns how many clients are subscribed to the quiz.
func (h *Hub) Watchers(quizID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[quizID])
}

// HandleWebSocket upgrades GET /ws/quiz/{quiz_id} and subscribes the client to the quiz room.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseUint(mux.Vars(r)["quiz_id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid quiz id", http.StatusBadRequest)
		return
	}
	if h.authorize != nil {
		if err := h.authorize(r); err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "could not validate credentials", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		quizID: uint(quizID),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// readPump only consumes control frames; the feed is server-to-client.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket unexpected close: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("websocket write error: %v", err)
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
