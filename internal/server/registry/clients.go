// internal/server/registry/clients.go
package registry

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"lanchat/internal/server/models"
)

var ErrNameTaken = errors.New("registry: nickname already in use")

// Entry is one row of a snapshot.
type Entry struct {
	Nickname string
	Client   *models.Client
}

// Clients maps nicknames to live chat connections. All methods are safe
// for concurrent use.
type Clients struct {
	mu   sync.RWMutex
	list map[string]*models.Client
}

func NewClients() *Clients {
	return &Clients{
		list: make(map[string]*models.Client),
	}
}

// Register binds c.Nickname to c, failing with ErrNameTaken when the name
// is already bound.
func (r *Clients) Register(c *models.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.list[c.Nickname]; ok {
		return ErrNameTaken
	}
	r.list[c.Nickname] = c
	return nil
}

// Unregister removes nickname. Unknown names are ignored.
func (r *Clients) Unregister(nickname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.list, nickname)
}

// Remove unregisters c only while its nickname is still bound to c, and
// reports whether it did.
func (r *Clients) Remove(c *models.Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.list[c.Nickname]; !ok || cur != c {
		return false
	}
	delete(r.list, c.Nickname)
	return true
}

func (r *Clients) Lookup(nickname string) (*models.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.list[nickname]
	return c, ok
}

func (r *Clients) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.list)
}

// Snapshot returns the current entries sorted by nickname.
func (r *Clients) Snapshot() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.list))
	for name, c := range r.list {
		entries = append(entries, Entry{Nickname: name, Client: c})
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Nickname, b.Nickname)
	})
	return entries
}
