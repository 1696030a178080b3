package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownReference = errors.New("unknown media reference")
	ErrRegistryClosed   = errors.New("media registry is closed")
)

// Registry owns the local copies of one session's uploads. Each upload gets a
// token; Revoke removes one copy and Close removes the session directory.
type Registry struct {
	dir string

	mu     sync.Mutex
	files  map[string]string
	closed bool
}

func NewRegistry(root string) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	dir, err := os.MkdirTemp(root, "session-")
	if err != nil {
		return nil, fmt.Errorf("failed to create session media dir: %w", err)
	}
	return &Registry{dir: dir, files: make(map[string]string)}, nil
}

// Acquire copies r into the registry and returns its token.
func (r *Registry) Acquire(name string, src io.Reader) (string, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return "", ErrRegistryClosed
	}

	token := uuid.NewString()
	path := filepath.Join(r.dir, token+filepath.Ext(filepath.Base(name)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		os.Remove(path)
		return "", ErrRegistryClosed
	}
	r.files[token] = path
	return token, nil
}

func (r *Registry) Path(token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.files[token]
	if !ok {
		return "", ErrUnknownReference
	}
	return path, nil
}

// Revoke releases one reference. Unknown tokens are ignored.
func (r *Registry) Revoke(token string) error {
	r.mu.Lock()
	path, ok := r.files[token]
	delete(r.files, token)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to revoke media %s: %w", token, err)
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// Close releases every reference. It is safe to call more than once.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.files = make(map[string]string)
	return os.RemoveAll(r.dir)
}
