package gateway

import (
	"context"
	"errors"
)

var (
	// ErrVenueNotFound occurs when the referenced venue is unknown.
	ErrVenueNotFound = errors.New("venue not found")
	// ErrPointNotFound occurs when the referenced gateway point is unknown.
	ErrPointNotFound = errors.New("gateway point not found")
)

// Gateway point kinds.
const (
	KindEntrance = "entrance"
	KindArea     = "area"
	KindSeat     = "seat"
)

// Venue groups gateway points and carries venue-level admission policy.
type Venue struct {
	ID            string
	Name          string
	PassRequired  bool
	DailyEntryCap int // 0 means uncapped
}

// Point describes one physical interaction point: a door, an internal area,
// or a seat/table. It is administrative configuration, read-only here.
type Point struct {
	ID            string
	VenueID       string
	Name          string
	Kind          string
	Enabled       bool
	AcceptsWallet bool
}

// Repository reads the venue and gateway point registry.
type Repository interface {
	Venue(ctx context.Context, id string) (Venue, error)
	Point(ctx context.Context, id string) (Point, error)
}
