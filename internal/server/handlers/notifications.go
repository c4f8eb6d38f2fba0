// internal/server/handlers/notifications.go
package handlers

import (
	"github.com/rs/zerolog/log"

	"lanchat/internal/server/models"
	"lanchat/internal/server/registry"
	"lanchat/pkg/protocol"
)

// Notifier turns registry changes and new files into announcements and
// control packets.
type Notifier struct {
	clients *registry.Clients
	events  *EventHandler
}

func NewNotifier(clients *registry.Clients, events *EventHandler) *Notifier {
	return &Notifier{
		clients: clients,
		events:  events,
	}
}

// Joined announces a freshly registered client and exchanges UPDATE
// packets so every roster converges. The newcomer also receives its own
// nickname. Clients registered but not yet announced are skipped; their
// own Joined call introduces them.
func (n *Notifier) Joined(c *models.Client) {
	n.events.mu.Lock()
	defer n.events.mu.Unlock()

	c.MarkJoined()
	n.events.broadcast(protocol.Text(protocol.Announcement(protocol.JoinText(c.Nickname))), nil)

	n.events.notifyUser(c, protocol.Control(protocol.NewUpdate(c.Nickname)))
	for _, e := range n.clients.Snapshot() {
		if e.Client == c || !e.Client.IsJoined() {
			continue
		}
		n.events.notifyUser(e.Client, protocol.Control(protocol.NewUpdate(c.Nickname)))
		n.events.notifyUser(c, protocol.Control(protocol.NewUpdate(e.Nickname)))
	}
	log.Info().Str("nickname", c.Nickname).Int("online", n.clients.Len()).Msg("client joined")
}

// Left unregisters c and, if it was still registered and announced,
// announces the departure and sends REMOVE to everyone left. It reports
// whether anything was announced.
func (n *Notifier) Left(c *models.Client) bool {
	n.events.mu.Lock()
	defer n.events.mu.Unlock()

	if !n.clients.Remove(c) || !c.IsJoined() {
		return false
	}
	n.events.broadcast(protocol.Text(protocol.Announcement(protocol.LeaveText(c.Nickname))), nil)
	n.events.broadcast(protocol.Control(protocol.NewRemove(c.Nickname)), nil)
	log.Info().Str("nickname", c.Nickname).Int("online", n.clients.Len()).Msg("client left")
	return true
}

// FileShared announces a finalized upload to every chat client.
func (n *Notifier) FileShared(rec models.FileRecord) {
	n.events.mu.Lock()
	defer n.events.mu.Unlock()

	n.events.broadcast(protocol.Text(protocol.Announcement(protocol.FileText(rec.Owner, rec.Filename))), nil)
	n.events.broadcast(protocol.Control(protocol.NewUpdateFile(rec.Filename, rec.Token)), nil)
}
