package handlers

import (
	"errors"
	"net"
	"testing"
	"time"

	"lanchat/internal/server/models"
	"lanchat/internal/server/registry"
	"lanchat/pkg/protocol"
)

type testPeer struct {
	client *models.Client
	remote net.Conn
	reader *protocol.Reader
}

// newPeer registers an announced client backed by one end of a pipe and
// returns the other end for the test to read from.
func newPeer(t *testing.T, clients *registry.Clients, nickname string) *testPeer {
	t.Helper()
	p := newPendingPeer(t, clients, nickname)
	p.client.MarkJoined()
	return p
}

// newPendingPeer registers a client whose join has not been announced yet.
func newPendingPeer(t *testing.T, clients *registry.Clients, nickname string) *testPeer {
	t.Helper()
	srv, remote := net.Pipe()
	c := models.NewClient(srv, nickname, 16)
	if err := clients.Register(c); err != nil {
		t.Fatalf("register %s: %v", nickname, err)
	}
	go c.WritePump()
	t.Cleanup(func() {
		c.Close()
		remote.Close()
	})
	return &testPeer{client: c, remote: remote, reader: protocol.NewReader(remote)}
}

func (p *testPeer) next(t *testing.T) protocol.Packet {
	t.Helper()
	p.remote.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := p.reader.ReadMessage()
	if err != nil {
		t.Fatalf("%s: read: %v", p.client.Nickname, err)
	}
	return protocol.ParsePacket(msg)
}

func (p *testPeer) expect(t *testing.T, want protocol.Packet) {
	t.Helper()
	if got := p.next(t); got != want {
		t.Fatalf("%s: got %v %q, want %v %q", p.client.Nickname, got.Kind, got.Body, want.Kind, want.Body)
	}
}

func (p *testPeer) expectNothing(t *testing.T) {
	t.Helper()
	p.remote.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	msg, err := p.reader.ReadMessage()
	var netErr net.Error
	if err == nil {
		t.Fatalf("%s: unexpected message %q", p.client.Nickname, msg)
	}
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("%s: unexpected error %v", p.client.Nickname, err)
	}
}

// collect returns every packet that arrives before the pipe goes quiet.
func (p *testPeer) collect() []protocol.Packet {
	var got []protocol.Packet
	for {
		p.remote.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		msg, err := p.reader.ReadMessage()
		if err != nil {
			return got
		}
		got = append(got, protocol.ParsePacket(msg))
	}
}
