package fees

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory configuration source for tests and
// database-less development mode.
type MemoryRepository struct {
	mu            sync.RWMutex
	configs       map[string]Config
	distributions map[string]Distribution
}

// NewMemoryRepository constructs an empty in-memory repository. Callers seed
// it with SetConfig/SetDistribution; a row under DefaultVenueID acts as the
// fallback.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		configs:       make(map[string]Config),
		distributions: make(map[string]Distribution),
	}
}

// SetConfig stores a fee schedule for a venue.
func (r *MemoryRepository) SetConfig(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.VenueID] = cfg
}

// SetDistribution stores a split for a venue.
func (r *MemoryRepository) SetDistribution(d Distribution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.distributions[d.VenueID] = d
}

func (r *MemoryRepository) Config(_ context.Context, venueID string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cfg, ok := r.configs[venueID]; ok {
		return cfg, nil
	}
	if cfg, ok := r.configs[DefaultVenueID]; ok {
		return cfg, nil
	}
	return Config{}, ErrNoConfig
}

func (r *MemoryRepository) Distribution(_ context.Context, venueID string) (Distribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.distributions[venueID]; ok {
		return d, nil
	}
	if d, ok := r.distributions[DefaultVenueID]; ok {
		return d, nil
	}
	return Distribution{}, ErrNoConfig
}
