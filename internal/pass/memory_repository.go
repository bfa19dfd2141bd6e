package pass

import (
	"context"
	"sync"
)

// MemoryOptionRepository is an in-memory option catalogue for tests and
// database-less development mode. Pass records themselves live in the
// in-memory transaction processor, which implements Repository.
type MemoryOptionRepository struct {
	mu      sync.RWMutex
	options map[string]Option
}

// NewMemoryOptionRepository constructs an empty catalogue seeded via AddOption.
func NewMemoryOptionRepository() *MemoryOptionRepository {
	return &MemoryOptionRepository{options: make(map[string]Option)}
}

// AddOption registers a purchasable pass option.
func (r *MemoryOptionRepository) AddOption(o Option) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options[o.ID] = o
}

func (r *MemoryOptionRepository) Option(_ context.Context, id string) (Option, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.options[id]
	if !ok {
		return Option{}, ErrOptionNotFound
	}
	return o, nil
}
