// internal/server/handlers/messages.go
package handlers

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"lanchat/internal/server/models"
	"lanchat/internal/server/registry"
	"lanchat/pkg/protocol"
)

const NoticeMalformed = "————> Malformed message ignored."

// MessageHandler routes the messages of one registered client.
type MessageHandler struct {
	clients *registry.Clients
	events  *EventHandler
}

func NewMessageHandler(clients *registry.Clients, events *EventHandler) *MessageHandler {
	return &MessageHandler{
		clients: clients,
		events:  events,
	}
}

// ReadPump routes messages from c until its connection fails. The
// returned error is always the transport error that ended the loop.
func (h *MessageHandler) ReadPump(c *models.Client, r *protocol.Reader) error {
	for {
		payload, err := r.ReadMessage()
		if errors.Is(err, protocol.ErrMessageTooLarge) {
			log.Debug().Err(err).Str("nickname", c.Nickname).Msg("message discarded")
			h.notice(c, protocol.NoticeTooLarge)
			continue
		}
		if err != nil {
			return err
		}
		h.HandleMessage(c, payload)
	}
}

// HandleMessage classifies one payload as public chat, a private command
// or garbage, and dispatches it.
func (h *MessageHandler) HandleMessage(sender *models.Client, payload []byte) {
	p := protocol.ParsePacket(payload)
	if p.Kind != protocol.KindText {
		h.notice(sender, NoticeMalformed)
		return
	}

	text := p.Body
	switch {
	case strings.TrimSpace(text) == "":
		h.notice(sender, protocol.NoticeEmptyMessage)
	case protocol.IsPrivateCommand(text):
		h.handlePrivateMessage(sender, text)
	default:
		h.handleGlobalMessage(sender, text)
	}
}

func (h *MessageHandler) handleGlobalMessage(sender *models.Client, text string) {
	h.events.Broadcast(protocol.Text(protocol.PublicLine(sender.Nickname, text)), sender)
}

func (h *MessageHandler) handlePrivateMessage(sender *models.Client, text string) {
	cmd, err := protocol.ParsePrivate(text)
	if err != nil {
		h.notice(sender, protocol.NoticePrivateUsage)
		return
	}

	recipient, ok := h.clients.Lookup(cmd.Recipient)
	if !ok || !recipient.IsJoined() {
		h.notice(sender, protocol.NoticeUserNotFound)
		return
	}
	h.events.NotifyUser(recipient, protocol.Text(protocol.PrivateLine(sender.Nickname, cmd.Text)))
	log.Debug().Str("from", sender.Nickname).Str("to", recipient.Nickname).Msg("private message")
}

func (h *MessageHandler) notice(c *models.Client, text string) {
	h.events.NotifyUser(c, protocol.Text(text))
}
