package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound occurs when no wallet matches the requested key.
var ErrNotFound = errors.New("wallet not found")

// Repository persists wallet metadata.
type Repository interface {
	Create(ctx context.Context, w Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet row with a zero starting balance. A concurrent
// insert for the same fingerprint is absorbed by the unique constraint; the
// caller re-fetches by fingerprint afterwards.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
        INSERT INTO wallets (id, device_fingerprint, balance, status, created_at)
        VALUES ($1, $2, 0, $3, $4)
        ON CONFLICT (device_fingerprint) DO NOTHING`,
		walletID, w.DeviceFingerprint, w.Status, w.CreatedAt.UTC())
	return err
}

// Get fetches wallet metadata by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletUUID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx, `
        SELECT id, device_fingerprint, status, created_at
        FROM wallets WHERE id = $1`, walletUUID))
}

// FindByFingerprint fetches the wallet bound to a device fingerprint.
func (r *PostgresRepository) FindByFingerprint(ctx context.Context, fingerprint string) (Wallet, error) {
	return r.scanOne(r.db.QueryRow(ctx, `
        SELECT id, device_fingerprint, status, created_at
        FROM wallets WHERE device_fingerprint = $1`, fingerprint))
}

func (r *PostgresRepository) scanOne(row pgx.Row) (Wallet, error) {
	var w Wallet
	var id uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&id, &w.DeviceFingerprint, &w.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
