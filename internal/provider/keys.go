package provider

import (
	"log/slog"
	"sync"
)

// KeyManager rotates through a pool of API keys. Every tier client shares
// one manager so a rotation caused by a 429 on any tier moves the whole
// provider to the next key.
type KeyManager struct {
	mu    sync.Mutex
	keys  []string
	index int
}

// NewKeyManager builds a manager over the given keys.
func NewKeyManager(keys []string) *KeyManager {
	return &KeyManager{keys: keys}
}

// Current returns the active key, or "" when the pool is empty.
func (k *KeyManager) Current() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.keys) == 0 {
		return ""
	}
	return k.keys[k.index]
}

// Rotate advances to the next key, wrapping around.
func (k *KeyManager) Rotate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.keys) == 0 {
		return
	}
	k.index = (k.index + 1) % len(k.keys)
	slog.Debug("api key rotated", "component", "provider", "index", k.index)
}

// Len returns the pool size.
func (k *KeyManager) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.keys)
}
