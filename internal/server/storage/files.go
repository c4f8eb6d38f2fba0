// internal/server/storage/files.go
package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"lanchat/internal/server/models"
)

var (
	ErrNotFound = errors.New("storage: file not found")
	ErrClosed   = errors.New("storage: closed")
)

// Files is the token keyed directory of uploaded files. Blobs live in a
// private directory created by Open and removed by Close.
type Files struct {
	mu       sync.RWMutex
	root     string
	closed   bool
	pending  map[string]models.FileRecord
	records  map[string]models.FileRecord
	newToken func() string
}

// Open creates a fresh storage directory inside dir.
func Open(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	root, err := os.MkdirTemp(dir, "lanchat-files-")
	if err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Files{
		root:     root,
		pending:  make(map[string]models.FileRecord),
		records:  make(map[string]models.FileRecord),
		newToken: uuid.NewString,
	}, nil
}

func (f *Files) Root() string {
	return f.root
}

// blob names are a digest of the token so a directory listing never
// reveals download tokens
func storageName(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateRecord mints a token that no current record holds and reserves a
// storage path for it. The record stays invisible to Lookup until
// Finalize is called.
func (f *Files) CreateRecord(filename, owner string) (models.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return models.FileRecord{}, ErrClosed
	}

	token := f.newToken()
	for f.taken(token) {
		token = f.newToken()
	}

	rec := models.FileRecord{
		Token:    token,
		Filename: filename,
		Path:     filepath.Join(f.root, storageName(token)),
		Owner:    owner,
	}
	f.pending[token] = rec
	return rec, nil
}

func (f *Files) taken(token string) bool {
	_, pending := f.pending[token]
	_, done := f.records[token]
	return pending || done
}

// Create opens the storage file of a pending record for writing.
func (f *Files) Create(token string) (*os.File, error) {
	f.mu.RLock()
	rec, ok := f.pending[token]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no pending upload %s", ErrNotFound, token)
	}
	return os.OpenFile(rec.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
}

// Finalize publishes a pending record once its bytes are on disk.
func (f *Files) Finalize(token string, size int64) (models.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.pending[token]
	if !ok {
		return models.FileRecord{}, fmt.Errorf("%w: no pending upload %s", ErrNotFound, token)
	}
	delete(f.pending, token)
	rec.Size = size
	rec.CreatedAt = time.Now()
	f.records[token] = rec
	return rec, nil
}

// Abort drops a pending reservation. Any partial blob stays on disk until
// Close.
func (f *Files) Abort(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, token)
}

func (f *Files) Lookup(token string) (models.FileRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rec, ok := f.records[token]
	if !ok {
		return models.FileRecord{}, ErrNotFound
	}
	return rec, nil
}

// Open looks up token and opens its blob for reading.
func (f *Files) Open(token string) (models.FileRecord, *os.File, error) {
	rec, err := f.Lookup(token)
	if err != nil {
		return rec, nil, err
	}
	file, err := os.Open(rec.Path)
	if err != nil {
		return rec, nil, fmt.Errorf("open blob: %w", err)
	}
	return rec, file, nil
}

func (f *Files) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records)
}

// Close forgets every record and removes the storage directory.
func (f *Files) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	clear(f.pending)
	clear(f.records)
	return os.RemoveAll(f.root)
}
