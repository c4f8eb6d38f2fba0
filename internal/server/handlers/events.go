// internal/server/handlers/events.go
package handlers

import (
	"sync"

	"github.com/rs/zerolog/log"

	"lanchat/internal/server/models"
	"lanchat/internal/server/registry"
	"lanchat/pkg/protocol"
)

// EventHandler fans packets out to registered clients. Fan-out and the
// presence sequences share one lock, so every client sees joins, leaves
// and chat lines in the same order.
type EventHandler struct {
	clients *registry.Clients
	mu      sync.Mutex
}

func NewEventHandler(clients *registry.Clients) *EventHandler {
	return &EventHandler{clients: clients}
}

// Broadcast queues p for every joined client except the given one (nil
// excludes nobody), in nickname order.
func (h *EventHandler) Broadcast(p protocol.Packet, except *models.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast(p, except)
}

// NotifyUser queues p for one client. A client whose outbox is full is
// disconnected; its reader then runs the leave sequence.
func (h *EventHandler) NotifyUser(c *models.Client, p protocol.Packet) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifyUser(c, p)
}

func (h *EventHandler) broadcast(p protocol.Packet, except *models.Client) {
	for _, e := range h.clients.Snapshot() {
		if e.Client == except || !e.Client.IsJoined() {
			continue
		}
		h.notifyUser(e.Client, p)
	}
}

func (h *EventHandler) notifyUser(c *models.Client, p protocol.Packet) {
	if c.Enqueue(p) {
		return
	}
	select {
	case <-c.Done():
		return
	default:
	}
	log.Warn().Str("nickname", c.Nickname).Str("addr", c.Addr).Msg("outbox full, dropping client")
	c.Close()
}
