package producer

import (
	"sync"
	"time"
)

// SyncEvent is the wire shape pushed to websocket watchers after every
// processed update.
type SyncEvent struct {
	Producer   string    `json:"producer"`
	UpdateName string    `json:"update_name"`
	UpdateType string    `json:"update_type"`
	RefDoctype string    `json:"ref_doctype"`
	Docname    string    `json:"docname"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// conn is the slice of the websocket connection the hub uses.
type conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub fans sync events out to connected websocket clients. Broadcasts come
// from one goroutine per active producer, and websocket connections forbid
// concurrent writers, so every write is serialized through the connection's
// own mutex.
type Hub struct {
	mu      sync.RWMutex
	clients map[conn]*sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[conn]*sync.Mutex),
	}
}

func (h *Hub) Register(c conn) {
	h.mu.Lock()
	h.clients[c] = &sync.Mutex{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *Hub) Broadcast(ev SyncEvent) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	targets := make(map[conn]*sync.Mutex, len(h.clients))
	for c, mu := range h.clients {
		targets[c] = mu
	}
	h.mu.RUnlock()

	for c, mu := range targets {
		mu.Lock()
		err := c.WriteJSON(ev)
		mu.Unlock()
		if err != nil {
			h.Unregister(c)
			c.Close()
		}
	}
}
