package apikeys

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var ErrNoKeysAvailable = errors.New("no API keys available")
var ErrAllKeysExhausted = errors.New("all available API keys have been exhausted")

// KeyManager hands out the active backend key and rotates past keys that hit
// quota or auth failures. It is shared by the script and speech clients.
type KeyManager struct {
	keys    []string
	current int
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewManager trims blanks out of keys and fails when none are left.
func NewManager(keys []string, logger *zap.Logger) (*KeyManager, error) {
	var cleaned []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoKeysAvailable
	}
	return &KeyManager{keys: cleaned, logger: logger}, nil
}

// Current returns the active key together with its slot.
func (km *KeyManager) Current() (int, string) {
	km.mu.Lock()
	defer km.mu.Unlock()
	return km.current, km.keys[km.current]
}

// Rotate marks the key in slot failed as spent. Concurrent callers reporting
// the same slot rotate only once. ErrAllKeysExhausted is returned when the
// rotation wraps around to the first key.
func (km *KeyManager) Rotate(failed int) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if failed != km.current {
		return nil
	}

	km.logger.Warn("API key failed or is exhausted, rotating", zap.Int("key", km.current+1))
	km.current++
	if km.current >= len(km.keys) {
		km.logger.Warn("All API keys have been tried, starting over from the first")
		km.current = 0
		return ErrAllKeysExhausted
	}
	km.logger.Info("Switched API key", zap.Int("key", km.current+1))
	return nil
}

// Len is the number of attempts a caller may spend before giving up.
func (km *KeyManager) Len() int {
	return len(km.keys)
}
