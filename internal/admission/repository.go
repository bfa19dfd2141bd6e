package admission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tapgate/tapgate/internal/ledger"
)

// Repository reads admission history and records denials. Approved entry
// events are written only inside the transaction processor's admission
// commit; denials move no money and are recorded here directly.
type Repository interface {
	LatestEntryNumber(ctx context.Context, walletID, venueID string) (int, error)
	RecordDenial(ctx context.Context, event ledger.EntryEvent) error
	EntryEvents(ctx context.Context, walletID, venueID string, limit int) ([]ledger.EntryEvent, error)
}

// PostgresRepository stores entry events in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LatestEntryNumber returns the highest approved entry number for the pair,
// or zero when the wallet has no history at the venue.
func (r *PostgresRepository) LatestEntryNumber(ctx context.Context, walletID, venueID string) (int, error) {
	var number int
	err := r.db.QueryRow(ctx, `
        SELECT COALESCE(MAX(entry_number), 0)
        FROM entry_events
        WHERE wallet_id = $1 AND venue_id = $2 AND outcome = $3`,
		walletID, venueID, ledger.OutcomeApproved).Scan(&number)
	return number, err
}

// RecordDenial inserts a denied entry event. Denials carry no entry number.
func (r *PostgresRepository) RecordDenial(ctx context.Context, event ledger.EntryEvent) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO entry_events (id, wallet_id, venue_id, gateway_id, entry_type, entry_number, outcome, reason,
            fee_total, fee_platform, fee_venue, fee_pool, fee_promoter, receipt_id, correlation_id, created_at)
        VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9, $10, $11, $12, '', '', $13)`,
		uuid.NewString(), event.WalletID, event.VenueID, event.GatewayID, event.EntryType, ledger.OutcomeDenied,
		event.Reason, event.FeeTotal, event.Breakdown.Platform, event.Breakdown.Venue,
		event.Breakdown.Pool, event.Breakdown.Promoter, time.Now().UTC())
	return err
}

// EntryEvents lists admission decisions for a wallet, newest first. An empty
// venue id matches all venues.
func (r *PostgresRepository) EntryEvents(ctx context.Context, walletID, venueID string, limit int) ([]ledger.EntryEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
        SELECT id, wallet_id, venue_id, gateway_id, entry_type, entry_number, outcome, reason,
            fee_total, fee_platform, fee_venue, fee_pool, fee_promoter, receipt_id, created_at
        FROM entry_events
        WHERE wallet_id = $1 AND ($2 = '' OR venue_id = $2)
        ORDER BY created_at DESC
        LIMIT $3`, walletID, venueID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ledger.EntryEvent
	for rows.Next() {
		var e ledger.EntryEvent
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.WalletID, &e.VenueID, &e.GatewayID, &e.EntryType, &e.EntryNumber,
			&e.Outcome, &e.Reason, &e.FeeTotal, &e.Breakdown.Platform, &e.Breakdown.Venue,
			&e.Breakdown.Pool, &e.Breakdown.Promoter, &e.ReceiptID, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = createdAt.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
