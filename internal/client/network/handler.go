// internal/client/network/handler.go
package network

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"lanchat/pkg/protocol"
)

// emptyChatLine is a name tag followed by nothing but whitespace.
var emptyChatLine = regexp.MustCompile(`^\[[^\]]*\]:\s*$`)

var (
	ErrNicknameTaken = errors.New("nickname already in use")
	ErrClosed        = errors.New("connection closed")
	ErrQueueFull     = errors.New("send queue full")
)

// ConnectionHandler drives the chat connection once the nickname
// handshake is done: a read loop dispatching to callbacks and a write loop
// draining the send queue.
type ConnectionHandler struct {
	conn         *Connection
	sendChan     chan protocol.Packet
	onMessage    func(string)
	onDirective  func(protocol.Directive)
	onDisconnect func(error)
	done         chan struct{}
	closeOnce    sync.Once
	mu           sync.RWMutex
	nickname     string
	first        *protocol.Packet
}

func NewConnectionHandler(conn *Connection) *ConnectionHandler {
	return &ConnectionHandler{
		conn:     conn,
		sendChan: make(chan protocol.Packet, 100),
		done:     make(chan struct{}),
	}
}

func (h *ConnectionHandler) SetMessageHandler(f func(string)) {
	h.onMessage = f
}

func (h *ConnectionHandler) SetDirectiveHandler(f func(protocol.Directive)) {
	h.onDirective = f
}

func (h *ConnectionHandler) SetDisconnectHandler(f func(error)) {
	h.onDisconnect = f
}

// Login offers a nickname and waits for the verdict. ErrNicknameTaken
// means the same connection may try another name.
func (h *ConnectionHandler) Login(nickname string) error {
	if err := protocol.ValidateNickname(nickname); err != nil {
		return err
	}
	if err := h.conn.WritePacket(protocol.Text(nickname)); err != nil {
		return fmt.Errorf("send nickname: %w", err)
	}
	p, err := h.conn.ReadPacket()
	if err != nil {
		return fmt.Errorf("read nickname reply: %w", err)
	}
	if p == protocol.Text(protocol.SignalResendNick) {
		return ErrNicknameTaken
	}

	h.mu.Lock()
	h.nickname = nickname
	h.first = &p
	h.mu.Unlock()
	return nil
}

func (h *ConnectionHandler) Nickname() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.nickname
}

func (h *ConnectionHandler) Start() {
	log.Info().Str("nickname", h.Nickname()).Msg("starting connection handler")
	go h.readLoop()
	go h.writeLoop()
}

// SendMessage queues one chat line.
func (h *ConnectionHandler) SendMessage(text string) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.sendChan <- protocol.Text(text):
		return nil
	default:
		return ErrQueueFull
	}
}

func (h *ConnectionHandler) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.done)
		err = h.conn.Close()
	})
	return err
}

func (h *ConnectionHandler) readLoop() {
	h.mu.Lock()
	first := h.first
	h.first = nil
	h.mu.Unlock()
	if first != nil {
		h.dispatch(*first)
	}

	for {
		p, err := h.conn.ReadPacket()
		if err != nil {
			h.handleDisconnect(err)
			return
		}
		h.dispatch(p)
	}
}

func (h *ConnectionHandler) writeLoop() {
	for {
		select {
		case <-h.done:
			return
		case p := <-h.sendChan:
			if err := h.conn.WritePacket(p); err != nil {
				log.Error().Err(err).Msg("write error")
				h.handleDisconnect(err)
				return
			}
		}
	}
}

func (h *ConnectionHandler) dispatch(p protocol.Packet) {
	if p.Kind == protocol.KindControl {
		d, err := p.Directive()
		if err != nil {
			log.Warn().Err(err).Msg("ignoring control packet")
			return
		}
		if h.onDirective != nil {
			h.onDirective(d)
		}
		return
	}

	// padding only, or a chat line with nothing after the name tag
	if strings.TrimSpace(p.Body) == "" || emptyChatLine.MatchString(p.Body) {
		return
	}
	if h.onMessage != nil {
		h.onMessage(p.Body)
	}
}

func (h *ConnectionHandler) handleDisconnect(err error) {
	select {
	case <-h.done:
		return
	default:
	}
	h.Close()
	log.Warn().Err(err).Msg("disconnected")
	if h.onDisconnect != nil {
		h.onDisconnect(err)
	}
}
