package gateway

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository reads the registry from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Venue fetches venue configuration by identifier.
func (r *PostgresRepository) Venue(ctx context.Context, id string) (Venue, error) {
	var v Venue
	err := r.db.QueryRow(ctx, `
        SELECT id, name, pass_required, daily_entry_cap
        FROM venues WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.PassRequired, &v.DailyEntryCap)
	if errors.Is(err, pgx.ErrNoRows) {
		return Venue{}, ErrVenueNotFound
	}
	return v, err
}

// Point fetches gateway point configuration by identifier.
func (r *PostgresRepository) Point(ctx context.Context, id string) (Point, error) {
	var p Point
	err := r.db.QueryRow(ctx, `
        SELECT id, venue_id, name, kind, enabled, accepts_wallet
        FROM gateway_points WHERE id = $1`, id).
		Scan(&p.ID, &p.VenueID, &p.Name, &p.Kind, &p.Enabled, &p.AcceptsWallet)
	if errors.Is(err, pgx.ErrNoRows) {
		return Point{}, ErrPointNotFound
	}
	return p, err
}
