package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists wallet balances, ledger entries, entry events and
// ghost passes in PostgreSQL. Every mutation runs in a single transaction
// holding a FOR UPDATE lock on the wallet row, which serializes concurrent
// work per wallet while leaving distinct wallets fully parallel.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed transaction processor.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureWallet verifies the wallet row exists. Row creation belongs to the
// wallet store; the processor only ever mutates balances.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, walletID string) error {
	var one int
	err := l.db.QueryRow(ctx, `SELECT 1 FROM wallets WHERE id = $1`, walletID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrWalletNotFound
	}
	return err
}

// Balance returns the wallet's current balance in minor units.
func (l *PostgresLedger) Balance(ctx context.Context, walletID string) (int64, error) {
	var balance int64
	err := l.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	return balance, err
}

// Entries lists the most recent ledger entries for a wallet, newest first.
func (l *PostgresLedger) Entries(ctx context.Context, walletID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(ctx, `
        SELECT id, wallet_id, delta, balance_before, balance_after, category, correlation_id, metadata, created_at
        FROM ledger_entries
        WHERE wallet_id = $1
        ORDER BY id DESC
        LIMIT $2`, walletID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var raw []byte
		if err := rows.Scan(&e.ID, &e.WalletID, &e.Delta, &e.BalanceBefore, &e.BalanceAfter, &e.Category, &e.CorrelationID, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode entry metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Fund credits the wallet once per unique external funding reference. The
// reference doubles as the entry's correlation id; a replay returns the
// originally credited balance alongside ErrDuplicateTransaction.
func (l *PostgresLedger) Fund(ctx context.Context, walletID string, amount int64, fundingRef string) (FundResult, error) {
	if amount <= 0 {
		return FundResult{}, fmt.Errorf("amount must be positive")
	}
	if fundingRef == "" {
		return FundResult{}, fmt.Errorf("funding reference is required")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return FundResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockWallet(ctx, tx, walletID)
	if err != nil {
		return FundResult{}, err
	}

	var existingID, existingAfter int64
	err = tx.QueryRow(ctx, `SELECT id, balance_after FROM ledger_entries WHERE correlation_id = $1`, fundingRef).
		Scan(&existingID, &existingAfter)
	if err == nil {
		return FundResult{EntryID: existingID, Balance: existingAfter}, ErrDuplicateTransaction
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return FundResult{}, err
	}

	after := balance + amount
	entryID, err := writeMutation(ctx, tx, mutation{
		walletID:      walletID,
		delta:         amount,
		before:        balance,
		after:         after,
		category:      CategoryFund,
		correlationID: fundingRef,
		metadata:      map[string]any{"funding_ref": fundingRef},
	})
	if err != nil {
		return FundResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return FundResult{}, err
	}
	return FundResult{EntryID: entryID, Balance: after}, nil
}

// Admit commits one admission charge: under the wallet lock it replays
// duplicates, assigns the next entry number for (wallet, venue), selects the
// charge plan for the resulting entry type, verifies the balance, and writes
// the balance update, ledger entry and approved entry event together.
func (l *PostgresLedger) Admit(ctx context.Context, input AdmitInput) (AdmitResult, error) {
	if input.CorrelationID == "" {
		return AdmitResult{}, fmt.Errorf("correlation id is required")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return AdmitResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockWallet(ctx, tx, input.WalletID)
	if err != nil {
		return AdmitResult{}, err
	}

	if res, found, err := replayAdmission(ctx, tx, input.CorrelationID); err != nil {
		return AdmitResult{}, err
	} else if found {
		return res, ErrDuplicateTransaction
	}

	var number int
	err = tx.QueryRow(ctx, `
        SELECT COALESCE(MAX(entry_number), 0) + 1
        FROM entry_events
        WHERE wallet_id = $1 AND venue_id = $2 AND outcome = $3`,
		input.WalletID, input.VenueID, OutcomeApproved).Scan(&number)
	if err != nil {
		return AdmitResult{}, err
	}

	if input.MaxEntries > 0 && number > input.MaxEntries {
		return AdmitResult{}, ErrEntryCapReached
	}

	plan := input.Reentry
	entryType := EntryTypeReentry
	if number == 1 {
		plan = input.Initial
		entryType = EntryTypeInitial
	}

	if plan.Fee > balance {
		return AdmitResult{}, &InsufficientBalanceError{Required: plan.Fee, Available: balance}
	}

	receiptID := uuid.NewString()
	after := balance - plan.Fee
	meta := map[string]any{
		"venue_id":   input.VenueID,
		"gateway_id": input.GatewayID,
		"method":     input.Method,
		"receipt_id": receiptID,
		"breakdown":  plan.Breakdown,
	}
	if input.PassToken != "" {
		meta["pass_token"] = input.PassToken
	}

	entryID, err := writeMutation(ctx, tx, mutation{
		walletID:      input.WalletID,
		delta:         -plan.Fee,
		before:        balance,
		after:         after,
		category:      CategoryAdmissionFee,
		correlationID: input.CorrelationID,
		metadata:      meta,
	})
	if err != nil {
		return AdmitResult{}, err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO entry_events (id, wallet_id, venue_id, gateway_id, entry_type, entry_number, outcome, reason,
            fee_total, fee_platform, fee_venue, fee_pool, fee_promoter, receipt_id, correlation_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, '', $8, $9, $10, $11, $12, $13, $14, $15)`,
		uuid.NewString(), input.WalletID, input.VenueID, input.GatewayID, entryType, number, OutcomeApproved,
		plan.Fee, plan.Breakdown.Platform, plan.Breakdown.Venue, plan.Breakdown.Pool, plan.Breakdown.Promoter,
		receiptID, input.CorrelationID, time.Now().UTC())
	if err != nil {
		return AdmitResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return AdmitResult{}, err
	}

	return AdmitResult{
		ReceiptID:   receiptID,
		EntryID:     entryID,
		EntryType:   entryType,
		EntryNumber: number,
		Fee:         plan.Fee,
		Breakdown:   plan.Breakdown,
		Balance:     after,
	}, nil
}

// PurchasePass debits the pass price and issues the token in one transaction.
func (l *PostgresLedger) PurchasePass(ctx context.Context, input PurchaseInput) (PurchaseResult, error) {
	if input.Price < 0 {
		return PurchaseResult{}, fmt.Errorf("price must not be negative")
	}
	if input.CorrelationID == "" {
		return PurchaseResult{}, fmt.Errorf("correlation id is required")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PurchaseResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockWallet(ctx, tx, input.WalletID)
	if err != nil {
		return PurchaseResult{}, err
	}

	var existingToken string
	var existingExpiry time.Time
	err = tx.QueryRow(ctx, `SELECT token, expires_at FROM ghost_passes WHERE correlation_id = $1`, input.CorrelationID).
		Scan(&existingToken, &existingExpiry)
	if err == nil {
		return PurchaseResult{Token: existingToken, ExpiresAt: existingExpiry, Balance: balance}, ErrDuplicateTransaction
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return PurchaseResult{}, err
	}

	if input.Price > balance {
		return PurchaseResult{}, &InsufficientBalanceError{Required: input.Price, Available: balance}
	}

	token := uuid.NewString()
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(input.ValidFor)
	after := balance - input.Price

	if _, err := writeMutation(ctx, tx, mutation{
		walletID:      input.WalletID,
		delta:         -input.Price,
		before:        balance,
		after:         after,
		category:      CategoryPassPurchase,
		correlationID: input.CorrelationID,
		metadata: map[string]any{
			"venue_id":  input.VenueID,
			"option_id": input.OptionID,
			"token":     token,
		},
	}); err != nil {
		return PurchaseResult{}, err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO ghost_passes (token, wallet_id, venue_id, option_id, price, issued_at, expires_at, status, correlation_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		token, input.WalletID, input.VenueID, input.OptionID, input.Price, issuedAt, expiresAt, PassStatusActive, input.CorrelationID)
	if err != nil {
		return PurchaseResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return PurchaseResult{}, err
	}
	return PurchaseResult{Token: token, ExpiresAt: expiresAt, Balance: after}, nil
}

type mutation struct {
	walletID      string
	delta         int64
	before        int64
	after         int64
	category      Category
	correlationID string
	metadata      map[string]any
}

// writeMutation applies the balance update and appends the matching ledger
// entry inside the caller's transaction.
func writeMutation(ctx context.Context, tx pgx.Tx, m mutation) (int64, error) {
	if m.after < 0 {
		return 0, &InsufficientBalanceError{Required: -m.delta, Available: m.before}
	}

	tag, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1 WHERE id = $2`, m.after, m.walletID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() != 1 {
		return 0, ErrWalletNotFound
	}

	raw, err := json.Marshal(m.metadata)
	if err != nil {
		return 0, fmt.Errorf("encode entry metadata: %w", err)
	}

	var entryID int64
	err = tx.QueryRow(ctx, `
        INSERT INTO ledger_entries (wallet_id, delta, balance_before, balance_after, category, correlation_id, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id`,
		m.walletID, m.delta, m.before, m.after, m.category, m.correlationID, raw, time.Now().UTC()).Scan(&entryID)
	if err != nil {
		return 0, err
	}
	return entryID, nil
}

func lockWallet(ctx context.Context, tx pgx.Tx, walletID string) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`, walletID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	return balance, err
}

// replayAdmission reconstructs the original result for an already-committed
// correlation id from the ledger entry and its approved entry event.
func replayAdmission(ctx context.Context, tx pgx.Tx, correlationID string) (AdmitResult, bool, error) {
	var entryID, after int64
	err := tx.QueryRow(ctx, `SELECT id, balance_after FROM ledger_entries WHERE correlation_id = $1`, correlationID).
		Scan(&entryID, &after)
	if errors.Is(err, pgx.ErrNoRows) {
		return AdmitResult{}, false, nil
	}
	if err != nil {
		return AdmitResult{}, false, err
	}

	var res AdmitResult
	err = tx.QueryRow(ctx, `
        SELECT entry_type, entry_number, fee_total, fee_platform, fee_venue, fee_pool, fee_promoter, receipt_id
        FROM entry_events
        WHERE correlation_id = $1 AND outcome = $2`, correlationID, OutcomeApproved).
		Scan(&res.EntryType, &res.EntryNumber, &res.Fee, &res.Breakdown.Platform, &res.Breakdown.Venue,
			&res.Breakdown.Pool, &res.Breakdown.Promoter, &res.ReceiptID)
	if err != nil {
		return AdmitResult{}, false, err
	}
	res.EntryID = entryID
	res.Balance = after
	return res, true, nil
}
