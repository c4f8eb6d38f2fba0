// internal/server/models/models.go
package models

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"lanchat/pkg/protocol"
)

var ErrClientClosed = errors.New("client closed")

// Client is a chat connection bound to a nickname. Frames queued with
// Enqueue are written by WritePump, so a slow peer never blocks the
// goroutine that is broadcasting to it.
type Client struct {
	Nickname string
	Addr     string
	Conn     net.Conn

	send      chan []byte
	done      chan struct{}
	joined    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewClient(conn net.Conn, nickname string, outboxSize int) *Client {
	return &Client{
		Nickname: nickname,
		Addr:     conn.RemoteAddr().String(),
		Conn:     conn,
		send:     make(chan []byte, outboxSize),
		done:     make(chan struct{}),
	}
}

// Enqueue queues a packet without blocking. It reports false when the
// outbox is full or the client is closed.
func (c *Client) Enqueue(p protocol.Packet) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- p.Frames():
		return true
	default:
		return false
	}
}

// WritePump writes queued frames until the client is closed or a write
// fails.
func (c *Client) WritePump() error {
	for {
		select {
		case frames := <-c.send:
			if _, err := c.Conn.Write(frames); err != nil {
				return err
			}
		case <-c.done:
			return ErrClientClosed
		}
	}
}

// MarkJoined records that the client's join has been announced. Until
// then it receives no broadcasts.
func (c *Client) MarkJoined() {
	c.joined.Store(true)
}

func (c *Client) IsJoined() bool {
	return c.joined.Load()
}

// Done is closed once Close has been called.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close cleans up the client's resources. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// FileRecord describes one uploaded file held by the server.
type FileRecord struct {
	Token     string
	Filename  string
	Path      string
	Owner     string
	Size      int64
	CreatedAt time.Time
}
