package wallet

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu            sync.RWMutex
	byID          map[string]Wallet
	byFingerprint map[string]string
}

// NewMemoryRepository constructs an in-memory repository for tests and
// database-less development mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:          make(map[string]Wallet),
		byFingerprint: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, w Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byFingerprint[w.DeviceFingerprint]; exists {
		return nil // same conflict-absorbing behavior as the Postgres insert
	}
	r.byID[w.ID] = w
	r.byFingerprint[w.DeviceFingerprint] = w.ID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byID[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (r *memoryRepository) FindByFingerprint(_ context.Context, fingerprint string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byFingerprint[fingerprint]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return r.byID[id], nil
}
