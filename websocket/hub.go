package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type SeatsUpdate struct {
	SessionID uuid.UUID `json:"session_id"`
	SeatsLeft int       `json:"seats_left"`
	Status    string    `json:"status"`
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Hub struct {
	log        logrus.FieldLogger
	clients    map[Conn]struct{}
	clientsMu  sync.RWMutex
	register   chan Conn
	unregister chan Conn
	broadcast  chan SeatsUpdate
	done       chan struct{}
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[Conn]struct{}),
		register:   make(chan Conn),
		unregister: make(chan Conn),
		broadcast:  make(chan SeatsUpdate, 64),
		done:       make(chan struct{}),
	}
}

// Register and Unregister return immediately once Run has stopped.
func (h *Hub) Register(c Conn) {
	select {
	case h.register <- c:
	case <-h.done:
		_ = c.Close()
	}
}

func (h *Hub) Unregister(c Conn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues an update for every connected client. Updates are dropped
// when the queue is full.
func (h *Hub) Publish(update SeatsUpdate) {
	select {
	case h.broadcast <- update:
	default:
		h.log.WithField("session_id", update.SessionID).Warn("availability feed backlog full, dropping update")
	}
}

func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.clientsMu.Lock()
			for c := range h.clients {
				_ = c.Close()
				delete(h.clients, c)
			}
			h.clientsMu.Unlock()
			return
		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = struct{}{}
			h.clientsMu.Unlock()
		case c := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				_ = c.Close()
			}
			h.clientsMu.Unlock()
		case update := <-h.broadcast:
			var dead []Conn
			h.clientsMu.RLock()
			for c := range h.clients {
				if err := c.WriteJSON(update); err != nil {
					h.log.WithError(err).Debug("Error sending availability update, dropping client")
					dead = append(dead, c)
				}
			}
			h.clientsMu.RUnlock()

			if len(dead) > 0 {
				h.clientsMu.Lock()
				for _, c := range dead {
					delete(h.clients, c)
					_ = c.Close()
				}
				h.clientsMu.Unlock()
			}
		}
	}
}
