package pass

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tapgate/tapgate/internal/ledger"
)

// Repository reads and transitions ghost pass records. Pass creation happens
// only inside the transaction processor's purchase commit.
type Repository interface {
	FindPass(ctx context.Context, token string) (ledger.PassRecord, error)
	RevokePass(ctx context.Context, token, reason string) (ledger.Revocation, error)
	MarkPassExpired(ctx context.Context, token string) error
}

// OptionRepository reads purchasable pass options.
type OptionRepository interface {
	Option(ctx context.Context, id string) (Option, error)
}

// PostgresRepository stores ghost passes in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindPass fetches the pass record for a token.
func (r *PostgresRepository) FindPass(ctx context.Context, token string) (ledger.PassRecord, error) {
	var p ledger.PassRecord
	var reason *string
	var revokedAt *time.Time
	err := r.db.QueryRow(ctx, `
        SELECT token, wallet_id, venue_id, option_id, price, issued_at, expires_at, status, revoke_reason, revoked_at
        FROM ghost_passes WHERE token = $1`, token).
		Scan(&p.Token, &p.WalletID, &p.VenueID, &p.OptionID, &p.Price, &p.IssuedAt, &p.ExpiresAt, &p.Status, &reason, &revokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.PassRecord{}, ledger.ErrPassNotFound
	}
	if err != nil {
		return ledger.PassRecord{}, err
	}
	if reason != nil {
		p.RevokeReason = *reason
	}
	p.RevokedAt = revokedAt
	return p, nil
}

// RevokePass flips the pass to revoked. The guarded UPDATE makes the
// transition one-way; when another caller already revoked the pass, the
// original revocation record is returned unchanged.
func (r *PostgresRepository) RevokePass(ctx context.Context, token, reason string) (ledger.Revocation, error) {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
        UPDATE ghost_passes
        SET status = $1, revoke_reason = $2, revoked_at = $3
        WHERE token = $4 AND status <> $1`,
		ledger.PassStatusRevoked, reason, now, token)
	if err != nil {
		return ledger.Revocation{}, err
	}
	if tag.RowsAffected() == 1 {
		return ledger.Revocation{Token: token, Reason: reason, RevokedAt: now}, nil
	}

	p, err := r.FindPass(ctx, token)
	if err != nil {
		return ledger.Revocation{}, err
	}
	if p.RevokedAt == nil {
		// Status flipped between our UPDATE and re-read only if someone
		// un-revoked, which the schema forbids.
		return ledger.Revocation{}, errors.New("revocation state inconsistent")
	}
	return ledger.Revocation{Token: token, Reason: p.RevokeReason, RevokedAt: *p.RevokedAt}, nil
}

// MarkPassExpired flips an active pass whose window has closed. Revoked
// passes are never touched.
func (r *PostgresRepository) MarkPassExpired(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `
        UPDATE ghost_passes
        SET status = $1
        WHERE token = $2 AND status = $3 AND expires_at <= $4`,
		ledger.PassStatusExpired, token, ledger.PassStatusActive, time.Now().UTC())
	return err
}

// PostgresOptionRepository reads pass options from PostgreSQL.
type PostgresOptionRepository struct {
	db *pgxpool.Pool
}

// NewPostgresOptionRepository builds an option repository backed by PostgreSQL.
func NewPostgresOptionRepository(db *pgxpool.Pool) *PostgresOptionRepository {
	return &PostgresOptionRepository{db: db}
}

// Option fetches a pass option by identifier.
func (r *PostgresOptionRepository) Option(ctx context.Context, id string) (Option, error) {
	var o Option
	var validitySeconds int64
	err := r.db.QueryRow(ctx, `
        SELECT id, venue_id, name, price, validity_seconds
        FROM pass_options WHERE id = $1`, id).
		Scan(&o.ID, &o.VenueID, &o.Name, &o.Price, &validitySeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return Option{}, ErrOptionNotFound
	}
	o.Validity = time.Duration(validitySeconds) * time.Second
	return o, err
}
