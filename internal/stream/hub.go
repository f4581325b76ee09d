// Package stream pushes refresh notifications to WebSocket subscribers.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"pricewatch/internal/observability"
)

// EventProductsRefreshed signals that the aggregated product view changed.
const EventProductsRefreshed = "products_refreshed"

// Event is a message broadcast to all connected subscribers.
type Event struct {
	Type   string    `json:"type"`
	At     time.Time `json:"at"`
	Groups int       `json:"groups,omitempty"`
}

// HubConfig configures hub behavior.
type HubConfig struct {
	// WriteTimeout is timeout for writing a frame to a subscriber.
	WriteTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// SendBuffer is the per-subscriber outgoing queue size. Subscribers
	// that fall further behind are dropped.
	SendBuffer int
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		SendBuffer:   16,
	}
}

// Hub fans broadcast events out to connected WebSocket clients.
type Hub struct {
	config   HubConfig
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*subscriber]struct{}

	closed atomic.Bool
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a new Hub.
func NewHub(config *HubConfig, logger *log.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[stream] ", log.LstdFlags)
	}

	return &Hub{
		config: cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the connection as a subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
	}

	h.mu.Lock()
	h.clients[sub] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.Default().StreamClients.Set(float64(n))

	go h.writeLoop(sub)
	go h.readLoop(sub)
}

// Broadcast sends the event to every connected subscriber. Subscribers whose
// queue is full are disconnected rather than blocking the caller.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Printf("marshal event: %v", err)
		return
	}

	h.mu.Lock()
	var slow []*subscriber
	for sub := range h.clients {
		select {
		case sub.send <- data:
			observability.Default().StreamEventsServed.Inc()
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range slow {
		h.logger.Printf("dropping slow subscriber %s", sub.conn.RemoteAddr())
		h.remove(sub)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all subscribers and rejects new connections.
func (h *Hub) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.clients))
	for sub := range h.clients {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.remove(sub)
	}
}

// remove unregisters the subscriber and closes its connection.
func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.clients[sub]
	if ok {
		delete(h.clients, sub)
		close(sub.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		sub.conn.Close()
		observability.Default().StreamClients.Set(float64(n))
	}
}

// writeLoop drains the send queue and keeps the connection alive with pings.
func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-sub.send:
			if !ok {
				return
			}
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(sub)
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(sub)
				return
			}
		}
	}
}

// readLoop discards inbound frames and detects disconnects.
func (h *Hub) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.remove(sub)
			return
		}
	}
}
