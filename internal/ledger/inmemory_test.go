package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newWallet(t *testing.T, l *InMemory) string {
	t.Helper()
	id := uuid.NewString()
	if err := l.EnsureWallet(context.Background(), id); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	return id
}

func TestFundCreditsOncePerReference(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	walletID := newWallet(t, l)

	res, err := l.Fund(ctx, walletID, 1_000, "psp-ref-1")
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if res.Balance != 1_000 {
		t.Fatalf("expected balance 1000, got %d", res.Balance)
	}

	replay, err := l.Fund(ctx, walletID, 1_000, "psp-ref-1")
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if replay.Balance != 1_000 {
		t.Fatalf("replay should return original balance, got %d", replay.Balance)
	}

	balance, err := l.Balance(ctx, walletID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 1_000 {
		t.Fatalf("duplicate notification double-credited: balance %d", balance)
	}
}

func TestAdmitInitialThenReentry(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	walletID := newWallet(t, l)
	SeedBalance(l, walletID, 1_000)

	input := AdmitInput{
		WalletID:      walletID,
		VenueID:       "venue-1",
		GatewayID:     "gate-1",
		Method:        "qr",
		CorrelationID: uuid.NewString(),
		Initial:       ChargePlan{Fee: 500, Breakdown: Breakdown{Platform: 500}},
		Reentry:       ChargePlan{Fee: 0},
	}

	first, err := l.Admit(ctx, input)
	if err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if first.EntryType != EntryTypeInitial || first.EntryNumber != 1 {
		t.Fatalf("expected initial #1, got %s #%d", first.EntryType, first.EntryNumber)
	}
	if first.Fee != 500 || first.Balance != 500 {
		t.Fatalf("expected fee 500 balance 500, got fee %d balance %d", first.Fee, first.Balance)
	}

	input.CorrelationID = uuid.NewString()
	second, err := l.Admit(ctx, input)
	if err != nil {
		t.Fatalf("second admit: %v", err)
	}
	if second.EntryType != EntryTypeReentry || second.EntryNumber != 2 {
		t.Fatalf("expected re-entry #2, got %s #%d", second.EntryType, second.EntryNumber)
	}
	if second.Fee != 0 || second.Balance != 500 {
		t.Fatalf("free re-entry should leave balance at 500, got fee %d balance %d", second.Fee, second.Balance)
	}
}

func TestAdmitInsufficientBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	walletID := newWallet(t, l)
	SeedBalance(l, walletID, 300)

	_, err := l.Admit(ctx, AdmitInput{
		WalletID:      walletID,
		VenueID:       "venue-1",
		GatewayID:     "gate-1",
		CorrelationID: uuid.NewString(),
		Initial:       ChargePlan{Fee: 500, Breakdown: Breakdown{Platform: 500}},
	})
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if insufficient.Shortfall() != 200 {
		t.Fatalf("expected shortfall 200, got %d", insufficient.Shortfall())
	}

	balance, _ := l.Balance(ctx, walletID)
	if balance != 300 {
		t.Fatalf("denied charge must not mutate balance, got %d", balance)
	}
	entries, _ := l.Entries(ctx, walletID, 10)
	if len(entries) != 0 {
		t.Fatalf("denied charge must not write ledger entries, got %d", len(entries))
	}
}

func TestAdmitReplaySameCorrelation(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	walletID := newWallet(t, l)
	SeedBalance(l, walletID, 1_000)

	input := AdmitInput{
		WalletID:      walletID,
		VenueID:       "venue-1",
		GatewayID:     "gate-1",
		CorrelationID: "scan-42",
		Initial:       ChargePlan{Fee: 500, Breakdown: Breakdown{Platform: 500}},
		Reentry:       ChargePlan{Fee: 500, Breakdown: Breakdown{Platform: 500}},
	}
	original, err := l.Admit(ctx, input)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	replay, err := l.Admit(ctx, input)
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if replay.ReceiptID != original.ReceiptID || replay.EntryNumber != original.EntryNumber {
		t.Fatalf("replay should return original result: %+v vs %+v", replay, original)
	}

	balance, _ := l.Balance(ctx, walletID)
	if balance != 500 {
		t.Fatalf("replay double-charged: balance %d", balance)
	}
}

func TestAdmitEntryCap(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	walletID := newWallet(t, l)
	SeedBalance(l, walletID, 1_000)

	input := AdmitInput{
		WalletID:   walletID,
		VenueID:    "venue-1",
		GatewayID:  "gate-1",
		MaxEntries: 1,
	}
	input.CorrelationID = uuid.NewString()
	if _, err := l.Admit(ctx, input); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	input.CorrelationID = uuid.NewString()
	if _, err := l.Admit(ctx, input); !errors.Is(err, ErrEntryCapReached) {
		t.Fatalf("expected cap reached, got %v", err)
	}
}

func TestConcurrentAdmissionsSameWallet(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	walletID := newWallet(t, l)
	SeedBalance(l, walletID, 500)

	plan := ChargePlan{Fee: 500, Breakdown: Breakdown{Platform: 500}}
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Admit(ctx, AdmitInput{
				WalletID:      walletID,
				VenueID:       "venue-1",
				GatewayID:     "gate-1",
				CorrelationID: uuid.NewString(),
				Initial:       plan,
				Reentry:       plan,
			})
		}(i)
	}
	wg.Wait()

	approved, denied := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, ErrInsufficientBalance):
			denied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if approved != 1 || denied != 1 {
		t.Fatalf("expected exactly one approval and one denial, got %d/%d", approved, denied)
	}

	balance, _ := l.Balance(ctx, walletID)
	if balance != 0 {
		t.Fatalf("expected single deduction, balance %d", balance)
	}
}

func TestBalanceMatchesLastEntry(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	walletID := newWallet(t, l)

	if _, err := l.Fund(ctx, walletID, 2_500, "ref-a"); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := l.Admit(ctx, AdmitInput{
		WalletID:      walletID,
		VenueID:       "venue-1",
		GatewayID:     "gate-1",
		CorrelationID: uuid.NewString(),
		Initial:       ChargePlan{Fee: 700, Breakdown: Breakdown{Platform: 700}},
	}); err != nil {
		t.Fatalf("admit: %v", err)
	}

	entries, err := l.Entries(ctx, walletID, 10)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	balance, _ := l.Balance(ctx, walletID)
	if len(entries) == 0 || entries[0].BalanceAfter != balance {
		t.Fatalf("balance %d must equal last entry balance-after %+v", balance, entries)
	}
	for _, e := range entries {
		if e.BalanceAfter != e.BalanceBefore+e.Delta {
			t.Fatalf("entry arithmetic broken: %+v", e)
		}
	}
}

func TestPurchasePassDebitsAndIssues(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	walletID := newWallet(t, l)
	SeedBalance(l, walletID, 1_000)

	res, err := l.PurchasePass(ctx, PurchaseInput{
		WalletID:      walletID,
		VenueID:       "venue-1",
		OptionID:      "night",
		Price:         250,
		ValidFor:      8 * time.Hour,
		CorrelationID: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.Balance != 750 || res.Token == "" {
		t.Fatalf("unexpected purchase result: %+v", res)
	}

	pass, err := l.FindPass(ctx, res.Token)
	if err != nil {
		t.Fatalf("find pass: %v", err)
	}
	if pass.Status != PassStatusActive || pass.WalletID != walletID {
		t.Fatalf("unexpected pass record: %+v", pass)
	}
	if !pass.ExpiresAt.Equal(res.ExpiresAt) {
		t.Fatalf("expiry mismatch: %v vs %v", pass.ExpiresAt, res.ExpiresAt)
	}
}

func TestPurchasePassInsufficientIssuesNoToken(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	walletID := newWallet(t, l)
	SeedBalance(l, walletID, 100)

	_, err := l.PurchasePass(ctx, PurchaseInput{
		WalletID:      walletID,
		VenueID:       "venue-1",
		OptionID:      "night",
		Price:         250,
		ValidFor:      8 * time.Hour,
		CorrelationID: uuid.NewString(),
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if len(l.passes) != 0 {
		t.Fatal("failed charge must not issue a token")
	}
}

func TestRevokePassIdempotent(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	walletID := newWallet(t, l)
	SeedBalance(l, walletID, 1_000)

	res, err := l.PurchasePass(ctx, PurchaseInput{
		WalletID: walletID, VenueID: "venue-1", OptionID: "night",
		Price: 100, ValidFor: 8 * time.Hour, CorrelationID: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	first, err := l.RevokePass(ctx, res.Token, "fraud")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	second, err := l.RevokePass(ctx, res.Token, "other reason")
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if second.Reason != "fraud" || !second.RevokedAt.Equal(first.RevokedAt) {
		t.Fatalf("repeat revoke must return the original record, got %+v", second)
	}
}
