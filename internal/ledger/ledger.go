package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWalletNotFound occurs when the referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrDuplicateTransaction indicates the provided correlation identifier (or
	// external funding reference) already produced a committed ledger entry;
	// the operation should be treated as idempotent and the original result
	// returned to the caller.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrEntryCapReached indicates the venue's daily entry cap would be
	// exceeded by this admission. No mutation is performed.
	ErrEntryCapReached = errors.New("entry cap reached")

	// ErrPassNotFound occurs when the referenced ghost pass token is unknown.
	ErrPassNotFound = errors.New("pass not found")

	// ErrInsufficientBalance is the errors.Is target for
	// InsufficientBalanceError values.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// InsufficientBalanceError reports a charge that the wallet balance cannot
// cover. It carries the detail callers need to start a funding flow.
type InsufficientBalanceError struct {
	Required  int64
	Available int64
}

// Shortfall returns the amount missing to cover the charge.
func (e *InsufficientBalanceError) Shortfall() int64 {
	return e.Required - e.Available
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %d, available %d", e.Required, e.Available)
}

// Is lets errors.Is(err, ErrInsufficientBalance) match typed values.
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// Category classifies a ledger entry.
type Category string

const (
	CategoryFund         Category = "fund"
	CategorySpend        Category = "spend"
	CategoryAdmissionFee Category = "admission_fee"
	CategoryPassPurchase Category = "pass_purchase"
)

// Entry type and outcome values shared by entry events.
const (
	EntryTypeInitial = "initial"
	EntryTypeReentry = "re_entry"

	OutcomeApproved = "approved"
	OutcomeDenied   = "denied"
)

// Ghost pass status values. Transitions are forward only: active passes expire
// by clock or are revoked explicitly; neither state is ever reversed.
const (
	PassStatusActive  = "active"
	PassStatusExpired = "expired"
	PassStatusRevoked = "revoked"
)

// Breakdown splits a single charge into stakeholder shares.
type Breakdown struct {
	Platform int64 `json:"platform"`
	Venue    int64 `json:"venue"`
	Pool     int64 `json:"pool"`
	Promoter int64 `json:"promoter"`
}

// Total sums the four shares. For a well-formed breakdown this equals the fee
// charged, exactly.
func (b Breakdown) Total() int64 {
	return b.Platform + b.Venue + b.Pool + b.Promoter
}

// ChargePlan pairs a fee amount with its distribution. Admit receives one plan
// per entry type and applies whichever the committed entry number selects.
type ChargePlan struct {
	Fee       int64
	Breakdown Breakdown
}

// Entry is one immutable balance mutation record.
type Entry struct {
	ID            int64
	WalletID      string
	Delta         int64
	BalanceBefore int64
	BalanceAfter  int64
	Category      Category
	CorrelationID string
	Metadata      map[string]any
	CreatedAt     time.Time
}

// EntryEvent records one admission decision, approved or denied.
type EntryEvent struct {
	ID          string
	WalletID    string
	VenueID     string
	GatewayID   string
	EntryType   string
	EntryNumber int
	Outcome     string
	Reason      string
	FeeTotal    int64
	Breakdown   Breakdown
	ReceiptID   string
	CreatedAt   time.Time
}

// PassRecord is the durable state of a ghost pass token.
type PassRecord struct {
	Token        string
	WalletID     string
	VenueID      string
	OptionID     string
	Price        int64
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Status       string
	RevokeReason string
	RevokedAt    *time.Time
}

// Revocation captures the terminal revocation state of a pass.
type Revocation struct {
	Token     string
	Reason    string
	RevokedAt time.Time
}

// FundResult reports a wallet credit.
type FundResult struct {
	EntryID int64
	Balance int64
}

// AdmitInput carries everything the processor needs to commit one admission
// charge. Both charge plans are supplied because the authoritative entry
// number, and therefore the entry type, is only known under the wallet lock.
type AdmitInput struct {
	WalletID      string
	VenueID       string
	GatewayID     string
	Method        string
	CorrelationID string
	Initial       ChargePlan
	Reentry       ChargePlan
	MaxEntries    int    // 0 means uncapped
	PassToken     string // set when a ghost pass covered the gate
}

// AdmitResult reports a committed (or replayed) admission charge.
type AdmitResult struct {
	ReceiptID   string
	EntryID     int64
	EntryType   string
	EntryNumber int
	Fee         int64
	Breakdown   Breakdown
	Balance     int64
}

// PurchaseInput carries a pass purchase charge.
type PurchaseInput struct {
	WalletID      string
	VenueID       string
	OptionID      string
	Price         int64
	ValidFor      time.Duration
	CorrelationID string
}

// PurchaseResult reports an issued (or replayed) pass purchase.
type PurchaseResult struct {
	Token     string
	ExpiresAt time.Time
	Balance   int64
}

// Ledger is the atomic transaction processor: the only component permitted to
// mutate a wallet balance. Every mutating method commits the balance change,
// the ledger entry, and any dependent record (entry event, pass token) as one
// unit of work, or not at all.
type Ledger interface {
	// EnsureWallet prepares balance tracking for a wallet created by the
	// wallet store. It is idempotent.
	EnsureWallet(ctx context.Context, walletID string) error

	// Balance returns the current balance in minor units.
	Balance(ctx context.Context, walletID string) (int64, error)

	// Entries returns the most recent ledger entries for a wallet, newest
	// first.
	Entries(ctx context.Context, walletID string, limit int) ([]Entry, error)

	// Fund credits the wallet once per unique external funding reference.
	// A replayed reference returns the original result alongside
	// ErrDuplicateTransaction.
	Fund(ctx context.Context, walletID string, amount int64, fundingRef string) (FundResult, error)

	// Admit atomically assigns the next entry number for (wallet, venue),
	// charges the plan matching the resulting entry type, and records the
	// ledger entry plus approved entry event. A replayed correlation id
	// returns the original result alongside ErrDuplicateTransaction.
	Admit(ctx context.Context, input AdmitInput) (AdmitResult, error)

	// PurchasePass atomically debits the pass price and issues the token.
	// If the charge fails no token is created.
	PurchasePass(ctx context.Context, input PurchaseInput) (PurchaseResult, error)
}
