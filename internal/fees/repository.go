package fees

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoConfig occurs when neither a venue row nor the default row exists.
var ErrNoConfig = errors.New("no fee configuration")

// Repository reads the current fee and distribution configuration.
type Repository interface {
	Config(ctx context.Context, venueID string) (Config, error)
	Distribution(ctx context.Context, venueID string) (Distribution, error)
}

// PostgresRepository reads configuration rows from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Config returns the venue's fee schedule, falling back to the default row.
func (r *PostgresRepository) Config(ctx context.Context, venueID string) (Config, error) {
	cfg, err := r.configRow(ctx, venueID)
	if errors.Is(err, pgx.ErrNoRows) {
		cfg, err = r.configRow(ctx, DefaultVenueID)
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, ErrNoConfig
		}
	}
	return cfg, err
}

// Distribution returns the venue's split, falling back to the default row.
func (r *PostgresRepository) Distribution(ctx context.Context, venueID string) (Distribution, error) {
	d, err := r.distributionRow(ctx, venueID)
	if errors.Is(err, pgx.ErrNoRows) {
		d, err = r.distributionRow(ctx, DefaultVenueID)
		if errors.Is(err, pgx.ErrNoRows) {
			return Distribution{}, ErrNoConfig
		}
	}
	return d, err
}

func (r *PostgresRepository) configRow(ctx context.Context, venueID string) (Config, error) {
	var cfg Config
	var updatedAt time.Time
	err := r.db.QueryRow(ctx, `
        SELECT venue_id, version, initial_entry_fee, reentry_fee, platform_reentry_fee, default_fee, updated_at
        FROM fee_configs WHERE venue_id = $1`, venueID).
		Scan(&cfg.VenueID, &cfg.Version, &cfg.InitialEntryFee, &cfg.ReentryFee, &cfg.PlatformReentryFee, &cfg.DefaultFee, &updatedAt)
	cfg.UpdatedAt = updatedAt.UTC()
	return cfg, err
}

func (r *PostgresRepository) distributionRow(ctx context.Context, venueID string) (Distribution, error) {
	var d Distribution
	err := r.db.QueryRow(ctx, `
        SELECT venue_id, version, platform_pct, venue_pct, pool_pct, promoter_pct
        FROM distribution_configs WHERE venue_id = $1`, venueID).
		Scan(&d.VenueID, &d.Version, &d.PlatformPct, &d.VenuePct, &d.PoolPct, &d.PromoterPct)
	return d, err
}
