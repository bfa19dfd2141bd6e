package gateway

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory registry for tests and database-less
// development mode.
type MemoryRepository struct {
	mu     sync.RWMutex
	venues map[string]Venue
	points map[string]Point
}

// NewMemoryRepository constructs an empty registry seeded via AddVenue and
// AddPoint.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		venues: make(map[string]Venue),
		points: make(map[string]Point),
	}
}

// AddVenue registers a venue.
func (r *MemoryRepository) AddVenue(v Venue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues[v.ID] = v
}

// AddPoint registers a gateway point.
func (r *MemoryRepository) AddPoint(p Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points[p.ID] = p
}

func (r *MemoryRepository) Venue(_ context.Context, id string) (Venue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.venues[id]
	if !ok {
		return Venue{}, ErrVenueNotFound
	}
	return v, nil
}

func (r *MemoryRepository) Point(_ context.Context, id string) (Point, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.points[id]
	if !ok {
		return Point{}, ErrPointNotFound
	}
	return p, nil
}
