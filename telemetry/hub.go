// Package telemetry streams decimating-filter driver statistics to
// connected websocket clients, for monitoring a running filter.Filter
// instance. It never touches the filter's real-time processing path: a
// Snapshot is handed to the hub by value after each Process call.
package telemetry

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Snapshot is a point-in-time copy of driver stats.
type Snapshot struct {
	BuffersHeld    int    `json:"buffers_held"`
	NRSamples      int    `json:"nr_samples"`
	RotCounter     uint64 `json:"rot_counter"`
	GeneratedTotal int64  `json:"generated_total"`
}

// client represents one connected websocket client.
type client struct {
	conn *websocket.Conn
	send chan Snapshot
}

// Hub manages websocket client connections and broadcasts filter
// Snapshots to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool

	broadcast  chan Snapshot
	register   chan *client
	unregister chan *client

	latest   Snapshot
	latestMu sync.RWMutex
}

// NewHub creates a new, unstarted telemetry hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Snapshot, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run drives the hub's event loop until ctxDone is closed.
func (h *Hub) Run(ctxDone <-chan struct{}) {
	for {
		select {
		case <-ctxDone:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*client]bool)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case snap := <-h.broadcast:
			h.latestMu.Lock()
			h.latest = snap
			h.latestMu.Unlock()

			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- snap:
				default:
					go func(c *client) { h.unregister <- c }(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast publishes a Snapshot to all connected clients. Non-blocking:
// if the internal queue is full, the snapshot is dropped since a fresher
// one will follow shortly.
func (h *Hub) Broadcast(snap Snapshot) {
	select {
	case h.broadcast <- snap:
	default:
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Latest returns the most recently broadcast Snapshot.
func (h *Hub) Latest() Snapshot {
	h.latestMu.RLock()
	defer h.latestMu.RUnlock()
	return h.latest
}

func (c *client) writePump() {
	defer c.conn.Close()
	for snap := range c.send {
		if err := c.conn.WriteJSON(snap); err != nil {
			return
		}
	}
}
