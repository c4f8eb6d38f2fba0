package network

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lanchat/internal/config"
	"lanchat/internal/server"
	"lanchat/pkg/protocol"
)

func startServer(t *testing.T) *server.Server {
	t.Helper()
	s, err := server.NewServer(config.Config{
		Host:       "127.0.0.1",
		StorageDir: t.TempDir(),
		OutboxSize: 64,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s
}

type events struct {
	messages   chan string
	directives chan protocol.Directive
	gone       chan error
}

func login(t *testing.T, s *server.Server, nickname string) (*ConnectionHandler, *events) {
	t.Helper()
	conn, err := NewConnection(s.ChatAddr())
	if err != nil {
		t.Fatal(err)
	}
	h := NewConnectionHandler(conn)
	t.Cleanup(func() { h.Close() })
	if err := h.Login(nickname); err != nil {
		t.Fatalf("login %s: %v", nickname, err)
	}

	ev := &events{
		messages:   make(chan string, 64),
		directives: make(chan protocol.Directive, 64),
		gone:       make(chan error, 1),
	}
	h.SetMessageHandler(func(s string) { ev.messages <- s })
	h.SetDirectiveHandler(func(d protocol.Directive) { ev.directives <- d })
	h.SetDisconnectHandler(func(err error) { ev.gone <- err })
	h.Start()
	return h, ev
}

func (ev *events) waitMessage(t *testing.T, want string) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case got := <-ev.messages:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func (ev *events) waitDirective(t *testing.T, want protocol.Directive) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case got := <-ev.directives:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestLoginRejectsTakenNickname(t *testing.T) {
	s := startServer(t)
	login(t, s, "alice")

	conn, err := NewConnection(s.ChatAddr())
	if err != nil {
		t.Fatal(err)
	}
	h := NewConnectionHandler(conn)
	defer h.Close()

	if err := h.Login("alice"); !errors.Is(err, ErrNicknameTaken) {
		t.Fatalf("got %v, want ErrNicknameTaken", err)
	}
	if err := h.Login("carol"); err != nil {
		t.Fatalf("retry on the same connection: %v", err)
	}
	if got := h.Nickname(); got != "carol" {
		t.Fatalf("nickname = %q", got)
	}
}

func TestLoginValidatesLocally(t *testing.T) {
	h := NewConnectionHandler(nil)
	if err := h.Login(" x"); !errors.Is(err, protocol.ErrInvalidNickname) {
		t.Fatalf("got %v", err)
	}
}

func TestMessagesAndPresence(t *testing.T) {
	s := startServer(t)
	alice, aliceEv := login(t, s, "alice")
	aliceEv.waitDirective(t, protocol.NewUpdate("alice"))

	bob, bobEv := login(t, s, "bob")
	bobEv.waitDirective(t, protocol.NewUpdate("alice"))
	aliceEv.waitDirective(t, protocol.NewUpdate("bob"))

	if err := alice.SendMessage("hello"); err != nil {
		t.Fatal(err)
	}
	bobEv.waitMessage(t, "[alice]: hello")

	if err := bob.SendMessage("/private (alice) psst"); err != nil {
		t.Fatal(err)
	}
	aliceEv.waitMessage(t, "[Private from bob]: psst")

	bob.Close()
	aliceEv.waitDirective(t, protocol.NewRemove("bob"))
	if err := bob.SendMessage("late"); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after close: %v", err)
	}
}

func TestDisconnectCallback(t *testing.T) {
	s := startServer(t)
	_, ev := login(t, s, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Shutdown(ctx)

	select {
	case <-ev.gone:
	case <-time.After(3 * time.Second):
		t.Fatal("disconnect handler not called")
	}
}

func TestUploadDownload(t *testing.T) {
	s := startServer(t)
	_, ev := login(t, s, "alice")

	content := bytes.Repeat([]byte("lan chat "), 500)
	src := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	var sent int64
	if err := Upload(s.UploadAddr(), "alice", src, func(done, _ int64) { sent = done }); err != nil {
		t.Fatal(err)
	}
	if sent != int64(len(content)) {
		t.Fatalf("progress reported %d bytes, want %d", sent, len(content))
	}

	var token string
	timeout := time.After(3 * time.Second)
	for token == "" {
		select {
		case d := <-ev.directives:
			if d.Op == protocol.OpUpdateFile && d.Filename == "notes.txt" {
				token = d.Token
			}
		case <-timeout:
			t.Fatal("no UPDATE_FILE received")
		}
	}
	ev.waitMessage(t, protocol.Announcement(protocol.FileText("alice", "notes.txt")))

	dir := t.TempDir()
	for _, want := range []string{"notes.txt", "notes (1).txt"} {
		path, err := Download(s.DownloadAddr(), token, dir, nil)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(path) != want {
			t.Fatalf("saved to %s, want %s", path, want)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, content) {
			t.Fatalf("downloaded %d bytes, want %d", len(got), len(content))
		}
	}
}

func TestDownloadUnknownToken(t *testing.T) {
	s := startServer(t)
	dir := t.TempDir()
	if _, err := Download(s.DownloadAddr(), "no-such-token", dir, nil); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("got %v, want ErrUnknownToken", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("unexpected files %v", entries)
	}
}

func TestDispatchFiltersOnlyEmptyChatLines(t *testing.T) {
	tests := []struct {
		body      string
		delivered bool
	}{
		{"[alice]: hello", true},
		{"[alice]: see note [1]:", true},
		{"[alice]:x", true},
		{"plain notice", true},
		{"[alice]:", false},
		{"[alice]:   ", false},
		{"[alice]: \n\t", false},
		{"   ", false},
		{"", false},
	}

	h := NewConnectionHandler(nil)
	var delivered []string
	h.SetMessageHandler(func(s string) { delivered = append(delivered, s) })

	for _, tt := range tests {
		delivered = nil
		h.dispatch(protocol.Text(tt.body))
		if got := len(delivered) == 1; got != tt.delivered {
			t.Errorf("dispatch(%q) delivered = %v, want %v", tt.body, got, tt.delivered)
		}
	}
}
