// Package alerthub delivers user-facing security alerts to the host UI over
// WebSocket. Producers publish only High/Critical findings.
package alerthub

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Alert is the payload handed to the host UI
type Alert struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
}

// Notifier receives alerts. The Hub implements it; tests use NotifierFunc.
type Notifier interface {
	Notify(alert Alert)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(alert Alert)

// Notify implements Notifier
func (f NotifierFunc) Notify(alert Alert) { f(alert) }

// Hub maintains the set of connected host clients and broadcasts alerts
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan Alert

	log *zap.Logger
}

// NewHub creates a hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan Alert, 64),
		log:        log,
	}
}

// Run processes register/unregister/broadcast events until the channels close
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if existing, ok := h.clients[client.ID]; ok {
				existing.closeSend()
			}
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Debug("alert client registered", zap.String("client_id", client.ID))

		case client := <-h.Unregister:
			h.mu.Lock()
			if existing, ok := h.clients[client.ID]; ok && existing == client {
				delete(h.clients, client.ID)
				existing.closeSend()
			}
			h.mu.Unlock()
			h.log.Debug("alert client unregistered", zap.String("client_id", client.ID))

		case alert := <-h.Broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- alert:
				default:
					h.log.Warn("dropping alert for slow client",
						zap.String("client_id", client.ID))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Notify implements Notifier. Alerts are dropped rather than blocking a
// detection callback when the hub is saturated.
func (h *Hub) Notify(alert Alert) {
	select {
	case h.Broadcast <- alert:
	default:
		h.log.Warn("alert hub saturated, dropping alert", zap.String("title", alert.Title))
	}
}

// GetClient returns a registered client by ID
func (h *Hub) GetClient(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[id]
	return client, ok
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
