// internal/server/handlers/auth.go
package handlers

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"lanchat/internal/server/models"
	"lanchat/internal/server/registry"
	"lanchat/pkg/protocol"
)

const writeTimeout = 5 * time.Second

// AuthHandler runs the nickname handshake on a new chat connection.
type AuthHandler struct {
	clients    *registry.Clients
	outboxSize int
}

func NewAuthHandler(clients *registry.Clients, outboxSize int) *AuthHandler {
	return &AuthHandler{
		clients:    clients,
		outboxSize: outboxSize,
	}
}

// HandleAuth reads candidate nicknames until one is valid and free,
// answering RESEND_NICK to every other candidate, and returns the
// registered client.
func (h *AuthHandler) HandleAuth(conn net.Conn, r *protocol.Reader) (*models.Client, error) {
	for {
		frame, err := r.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("read nickname: %w", err)
		}
		nickname := string(protocol.TrimPadding(frame))

		if err := protocol.ValidateNickname(nickname); err != nil {
			log.Debug().Err(err).Str("addr", conn.RemoteAddr().String()).Msg("nickname rejected")
			if err := sendResponse(conn, protocol.Text(protocol.SignalResendNick)); err != nil {
				return nil, err
			}
			continue
		}

		client := models.NewClient(conn, nickname, h.outboxSize)
		err = h.clients.Register(client)
		if errors.Is(err, registry.ErrNameTaken) {
			log.Debug().Str("nickname", nickname).Msg("nickname taken")
			if err := sendResponse(conn, protocol.Text(protocol.SignalResendNick)); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// sendResponse writes directly to a connection that has no outbox yet.
func sendResponse(conn net.Conn, p protocol.Packet) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	defer conn.SetWriteDeadline(time.Time{})

	if _, err := conn.Write(p.Frames()); err != nil {
		return fmt.Errorf("send %s packet: %w", p.Kind, err)
	}
	return nil
}
