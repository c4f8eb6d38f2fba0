package registry

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"lanchat/internal/server/models"
)

func newTestClient(t *testing.T, nickname string) *models.Client {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return models.NewClient(server, nickname, 4)
}

func TestRegisterRejectsTakenName(t *testing.T) {
	r := NewClients()
	if err := r.Register(newTestClient(t, "alice")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(newTestClient(t, "alice")); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := NewClients()
	c := newTestClient(t, "bob")
	if err := r.Register(c); err != nil {
		t.Fatal(err)
	}

	r.Unregister("bob")
	r.Unregister("bob")
	r.Unregister("nobody")

	if _, ok := r.Lookup("bob"); ok {
		t.Fatal("bob still registered")
	}
	if err := r.Register(newTestClient(t, "bob")); err != nil {
		t.Fatalf("name not released: %v", err)
	}
}

func TestRemoveOnlyMatchingClient(t *testing.T) {
	r := NewClients()
	old := newTestClient(t, "carol")
	if err := r.Register(old); err != nil {
		t.Fatal(err)
	}
	if !r.Remove(old) {
		t.Fatal("expected first Remove to succeed")
	}
	if r.Remove(old) {
		t.Fatal("second Remove should report false")
	}

	replacement := newTestClient(t, "carol")
	if err := r.Register(replacement); err != nil {
		t.Fatal(err)
	}
	if r.Remove(old) {
		t.Fatal("stale client removed its successor")
	}
	if c, _ := r.Lookup("carol"); c != replacement {
		t.Fatal("lookup does not return the replacement")
	}
}

func TestSnapshotSorted(t *testing.T) {
	r := NewClients()
	for _, name := range []string{"mallory", "alice", "trent", "bob"} {
		if err := r.Register(newTestClient(t, name)); err != nil {
			t.Fatal(err)
		}
	}

	snap := r.Snapshot()
	want := []string{"alice", "bob", "mallory", "trent"}
	if len(snap) != len(want) {
		t.Fatalf("got %d entries", len(snap))
	}
	for i, e := range snap {
		if e.Nickname != want[i] || e.Client.Nickname != want[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Nickname, want[i])
		}
	}
}

func TestConcurrentRegistrationKeepsNamesUnique(t *testing.T) {
	r := NewClients()
	const (
		names    = 10
		attempts = 20
	)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners = make(map[string]int)
	)
	for i := 0; i < names*attempts; i++ {
		name := fmt.Sprintf("user%d", i%names)
		c := newTestClient(t, name)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Register(c); err == nil {
				mu.Lock()
				winners[name]++
				mu.Unlock()
			}
			r.Snapshot()
		}()
	}
	wg.Wait()

	if r.Len() != names {
		t.Fatalf("Len = %d, want %d", r.Len(), names)
	}
	for name, n := range winners {
		if n != 1 {
			t.Errorf("%s registered %d times", name, n)
		}
	}
}
