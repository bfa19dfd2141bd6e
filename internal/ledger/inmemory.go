package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemory is a concurrency-safe in-memory transaction processor mirroring
// the Postgres semantics. Because it also holds the entry events and ghost
// passes an admission commit produces, it doubles as the admission and pass
// repository when no database is configured.
type InMemory struct {
	mu          sync.Mutex
	balances    map[string]int64
	entries     []Entry
	nextEntryID int64
	events      []EntryEvent
	passes      map[string]*PassRecord
	admissions  map[string]AdmitResult
	purchases   map[string]PurchaseResult
	fundings    map[string]FundResult
}

// NewInMemory creates an empty in-memory processor.
func NewInMemory() *InMemory {
	return &InMemory{
		balances:   make(map[string]int64),
		passes:     make(map[string]*PassRecord),
		admissions: make(map[string]AdmitResult),
		purchases:  make(map[string]PurchaseResult),
		fundings:   make(map[string]FundResult),
	}
}

// EnsureWallet initializes balance tracking for a wallet.
func (l *InMemory) EnsureWallet(_ context.Context, walletID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[walletID]; !exists {
		l.balances[walletID] = 0
	}
	return nil
}

// Balance returns the wallet's current balance.
func (l *InMemory) Balance(_ context.Context, walletID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[walletID]
	if !ok {
		return 0, ErrWalletNotFound
	}
	return balance, nil
}

// Entries lists the most recent ledger entries for a wallet, newest first.
func (l *InMemory) Entries(_ context.Context, walletID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].WalletID == walletID {
			out = append(out, l.entries[i])
		}
	}
	return out, nil
}

// Fund credits the wallet once per funding reference.
func (l *InMemory) Fund(_ context.Context, walletID string, amount int64, fundingRef string) (FundResult, error) {
	if amount <= 0 {
		return FundResult{}, fmt.Errorf("amount must be positive")
	}
	if fundingRef == "" {
		return FundResult{}, fmt.Errorf("funding reference is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if res, exists := l.fundings[fundingRef]; exists {
		return res, ErrDuplicateTransaction
	}

	balance, ok := l.balances[walletID]
	if !ok {
		return FundResult{}, ErrWalletNotFound
	}

	after := balance + amount
	entryID := l.append(Entry{
		WalletID:      walletID,
		Delta:         amount,
		BalanceBefore: balance,
		BalanceAfter:  after,
		Category:      CategoryFund,
		CorrelationID: fundingRef,
		Metadata:      map[string]any{"funding_ref": fundingRef},
	})
	l.balances[walletID] = after

	res := FundResult{EntryID: entryID, Balance: after}
	l.fundings[fundingRef] = res
	return res, nil
}

// Admit applies one admission charge under the store lock.
func (l *InMemory) Admit(_ context.Context, input AdmitInput) (AdmitResult, error) {
	if input.CorrelationID == "" {
		return AdmitResult{}, fmt.Errorf("correlation id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if res, exists := l.admissions[input.CorrelationID]; exists {
		return res, ErrDuplicateTransaction
	}

	balance, ok := l.balances[input.WalletID]
	if !ok {
		return AdmitResult{}, ErrWalletNotFound
	}

	number := l.latestEntryNumber(input.WalletID, input.VenueID) + 1
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

	entryID := l.append(Entry{
		WalletID:      input.WalletID,
		Delta:         -plan.Fee,
		BalanceBefore: balance,
		BalanceAfter:  after,
		Category:      CategoryAdmissionFee,
		CorrelationID: input.CorrelationID,
		Metadata:      meta,
	})
	l.balances[input.WalletID] = after

	l.events = append(l.events, EntryEvent{
		ID:          uuid.NewString(),
		WalletID:    input.WalletID,
		VenueID:     input.VenueID,
		GatewayID:   input.GatewayID,
		EntryType:   entryType,
		EntryNumber: number,
		Outcome:     OutcomeApproved,
		FeeTotal:    plan.Fee,
		Breakdown:   plan.Breakdown,
		ReceiptID:   receiptID,
		CreatedAt:   time.Now().UTC(),
	})

	res := AdmitResult{
		ReceiptID:   receiptID,
		EntryID:     entryID,
		EntryType:   entryType,
		EntryNumber: number,
		Fee:         plan.Fee,
		Breakdown:   plan.Breakdown,
		Balance:     after,
	}
	l.admissions[input.CorrelationID] = res
	return res, nil
}

// PurchasePass debits the price and issues the token as one locked step.
func (l *InMemory) PurchasePass(_ context.Context, input PurchaseInput) (PurchaseResult, error) {
	if input.Price < 0 {
		return PurchaseResult{}, fmt.Errorf("price must not be negative")
	}
	if input.CorrelationID == "" {
		return PurchaseResult{}, fmt.Errorf("correlation id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if res, exists := l.purchases[input.CorrelationID]; exists {
		return res, ErrDuplicateTransaction
	}

	balance, ok := l.balances[input.WalletID]
	if !ok {
		return PurchaseResult{}, ErrWalletNotFound
	}
	if input.Price > balance {
		return PurchaseResult{}, &InsufficientBalanceError{Required: input.Price, Available: balance}
	}

	token := uuid.NewString()
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(input.ValidFor)
	after := balance - input.Price

	l.append(Entry{
		WalletID:      input.WalletID,
		Delta:         -input.Price,
		BalanceBefore: balance,
		BalanceAfter:  after,
		Category:      CategoryPassPurchase,
		CorrelationID: input.CorrelationID,
		Metadata: map[string]any{
			"venue_id":  input.VenueID,
			"option_id": input.OptionID,
			"token":     token,
		},
	})
	l.balances[input.WalletID] = after

	l.passes[token] = &PassRecord{
		Token:     token,
		WalletID:  input.WalletID,
		VenueID:   input.VenueID,
		OptionID:  input.OptionID,
		Price:     input.Price,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Status:    PassStatusActive,
	}

	res := PurchaseResult{Token: token, ExpiresAt: expiresAt, Balance: after}
	l.purchases[input.CorrelationID] = res
	return res, nil
}

// LatestEntryNumber returns the highest approved entry number for the pair,
// or zero when the wallet has no history at the venue.
func (l *InMemory) LatestEntryNumber(_ context.Context, walletID, venueID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latestEntryNumber(walletID, venueID), nil
}

// RecordDenial stores a denied entry event. Denials never carry an entry
// number or move money.
func (l *InMemory) RecordDenial(_ context.Context, event EntryEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	event.Outcome = OutcomeDenied
	event.EntryNumber = 0
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	l.events = append(l.events, event)
	return nil
}

// EntryEvents lists admission decisions for a wallet, newest first. An empty
// venue id matches all venues.
func (l *InMemory) EntryEvents(_ context.Context, walletID, venueID string, limit int) ([]EntryEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []EntryEvent
	for i := len(l.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := l.events[i]
		if e.WalletID != walletID {
			continue
		}
		if venueID != "" && e.VenueID != venueID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// FindPass returns the stored pass record for a token.
func (l *InMemory) FindPass(_ context.Context, token string) (PassRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.passes[token]
	if !ok {
		return PassRecord{}, ErrPassNotFound
	}
	return *p, nil
}

// RevokePass flips a pass to revoked. Revoking an already-revoked pass is a
// no-op returning the original revocation record.
func (l *InMemory) RevokePass(_ context.Context, token, reason string) (Revocation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.passes[token]
	if !ok {
		return Revocation{}, ErrPassNotFound
	}
	if p.Status == PassStatusRevoked {
		return Revocation{Token: token, Reason: p.RevokeReason, RevokedAt: *p.RevokedAt}, nil
	}
	now := time.Now().UTC()
	p.Status = PassStatusRevoked
	p.RevokeReason = reason
	p.RevokedAt = &now
	return Revocation{Token: token, Reason: reason, RevokedAt: now}, nil
}

// MarkPassExpired flips an active pass whose expiry has passed. Revoked
// passes are never touched.
func (l *InMemory) MarkPassExpired(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.passes[token]
	if !ok {
		return ErrPassNotFound
	}
	if p.Status == PassStatusActive && !p.ExpiresAt.After(time.Now().UTC()) {
		p.Status = PassStatusExpired
	}
	return nil
}

func (l *InMemory) latestEntryNumber(walletID, venueID string) int {
	max := 0
	for _, e := range l.events {
		if e.WalletID == walletID && e.VenueID == venueID && e.Outcome == OutcomeApproved && e.EntryNumber > max {
			max = e.EntryNumber
		}
	}
	return max
}

func (l *InMemory) append(e Entry) int64 {
	l.nextEntryID++
	e.ID = l.nextEntryID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	l.entries = append(l.entries, e)
	return e.ID
}
