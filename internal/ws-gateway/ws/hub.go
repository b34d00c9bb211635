package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/broadcast"
)

// allRooms recebe atualizações de qualquer evento
const allRooms = "*"

const writeTimeout = 5 * time.Second

// client serializa as escritas; gorilla não aceita escritores concorrentes
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *client) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(b)
}

// Hub gerencia conexões WebSocket e as salas (uma por evento)
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	mu       sync.RWMutex
	// eventID -> set of clients
	rooms map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool, log *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		rooms:    make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer func() {
		h.drop(c)
		_ = conn.Close()
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		room := msg.EventID
		if room == "" {
			room = allRooms
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.rooms[room]; !ok {
				h.rooms[room] = make(map[*client]struct{})
			}
			h.rooms[room][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			h.leave(room, c)
			h.mu.Unlock()
		case "ping":
			_ = c.writeJSON(map[string]string{"type": "pong"})
		}
	}
}

// leave exige h.mu travado
func (h *Hub) leave(room string, c *client) {
	if set, ok := h.rooms[room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
}

// drop remove a conexão de todas as salas
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	for room := range h.rooms {
		h.leave(room, c)
	}
	h.mu.Unlock()
}

// Subscribers conta as conexões de uma sala
func (h *Hub) Subscribers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

// Broadcast envia o envelope para a sala do evento e para quem assina tudo
func (h *Hub) Broadcast(env broadcast.Envelope) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[env.Room])+len(h.rooms[allRooms]))
	for c := range h.rooms[env.Room] {
		targets = append(targets, c)
	}
	for c := range h.rooms[allRooms] {
		if _, dup := h.rooms[env.Room][c]; !dup {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(Update{Type: "update", Topic: env.Topic, EventID: env.Room, Payload: env.Payload})
	if err != nil {
		h.log.Warn("ws marshal failed", zap.String("topic", env.Topic), zap.Error(err))
		return
	}
	for _, c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}
