// Package stream broadcasts tick price changes to WebSocket clients.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grubstreet/papertrader/internal/domain"
)

// ChangeMessage is the JSON payload sent after every tick.
type ChangeMessage struct {
	Type    string        `json:"type"`
	Session string        `json:"session_id"`
	Turn    int           `json:"turn"`
	Changes []priceChange `json:"changes"`
}

type priceChange struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Trigger       string  `json:"trigger"`
	EventID       string  `json:"event_id,omitempty"`
}

// Hub manages WebSocket connections for one session and fans out each
// tick's change batch to all of them.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

// NewHub creates a hub. Run must be started in a goroutine before
// broadcasting.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run is the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastChanges sends a tick's change batch to every client. The
// message is dropped if the buffer is full so a slow client cannot
// stall the turn sequence.
func (h *Hub) BroadcastChanges(sessionID string, turn int, changes []domain.PriceChange) {
	msg := ChangeMessage{
		Type:    "price_changes",
		Session: sessionID,
		Turn:    turn,
		Changes: make([]priceChange, len(changes)),
	}
	for i, c := range changes {
		msg.Changes[i] = priceChange{
			Ticker:        c.Ticker,
			Price:         c.Price,
			Change:        c.Change,
			ChangePercent: c.ChangePercent,
			Trigger:       string(c.Trigger),
			EventID:       c.EventID,
		}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // the game client is served from arbitrary origins
	},
}

// HandleWS upgrades a request and keeps the connection registered until
// the client disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.register <- conn

	// Read pump: detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping keepalive.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
