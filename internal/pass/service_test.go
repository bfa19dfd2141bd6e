package pass

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tapgate/tapgate/internal/ledger"
)

func setupService(t *testing.T) (*Service, *ledger.InMemory, string) {
	t.Helper()
	led := ledger.NewInMemory()
	options := NewMemoryOptionRepository()
	options.AddOption(Option{ID: "night", VenueID: "venue-1", Name: "Night pass", Price: 2_500, Validity: 8 * time.Hour})
	options.AddOption(Option{ID: "blink", VenueID: "venue-1", Name: "Short pass", Price: 100, Validity: time.Nanosecond})
	svc := NewService(options, led, led, nil)

	walletID := "wallet-1"
	if err := led.EnsureWallet(context.Background(), walletID); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	return svc, led, walletID
}

func TestPurchaseDebitsWalletAndIssuesToken(t *testing.T) {
	svc, led, walletID := setupService(t)
	ctx := context.Background()
	ledger.SeedBalance(led, walletID, 1_000)

	if _, err := svc.Purchase(ctx, PurchaseInput{WalletID: walletID, VenueID: "venue-1", OptionID: "night"}); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance at 1000, got %v", err)
	}

	ledger.SeedBalance(led, walletID, 3_250)
	res, err := svc.Purchase(ctx, PurchaseInput{WalletID: walletID, VenueID: "venue-1", OptionID: "night"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.Balance != 750 {
		t.Fatalf("expected balance 750 after 2500 purchase, got %d", res.Balance)
	}

	v, err := svc.Validate(ctx, res.Token, walletID, "venue-1")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !v.Valid {
		t.Fatalf("fresh pass should be valid, got reason %q", v.Reason)
	}
}

func TestPurchaseRejectsWrongVenueOption(t *testing.T) {
	svc, led, walletID := setupService(t)
	ledger.SeedBalance(led, walletID, 10_000)

	if _, err := svc.Purchase(context.Background(), PurchaseInput{WalletID: walletID, VenueID: "venue-2", OptionID: "night"}); err == nil {
		t.Fatal("expected scope mismatch to be rejected")
	}
}

func TestValidateDenials(t *testing.T) {
	svc, led, walletID := setupService(t)
	ctx := context.Background()
	ledger.SeedBalance(led, walletID, 10_000)

	res, err := svc.Purchase(ctx, PurchaseInput{WalletID: walletID, VenueID: "venue-1", OptionID: "night"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	cases := []struct {
		name   string
		token  string
		wallet string
		venue  string
		reason string
	}{
		{"unknown token", "no-such-token", walletID, "venue-1", ReasonNotFound},
		{"wrong wallet", res.Token, "wallet-other", "venue-1", ReasonWrongWallet},
		{"wrong venue", res.Token, walletID, "venue-9", ReasonWrongScope},
	}
	for _, tc := range cases {
		v, err := svc.Validate(ctx, tc.token, tc.wallet, tc.venue)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if v.Valid || v.Reason != tc.reason {
			t.Fatalf("%s: expected reason %q, got valid=%t reason=%q", tc.name, tc.reason, v.Valid, v.Reason)
		}
	}
}

func TestValidateLazyExpiry(t *testing.T) {
	svc, led, walletID := setupService(t)
	ctx := context.Background()
	ledger.SeedBalance(led, walletID, 10_000)

	res, err := svc.Purchase(ctx, PurchaseInput{WalletID: walletID, VenueID: "venue-1", OptionID: "blink"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	time.Sleep(time.Millisecond)

	v, err := svc.Validate(ctx, res.Token, walletID, "venue-1")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.Valid || v.Reason != ReasonExpired {
		t.Fatalf("expected expiry denial, got valid=%t reason=%q", v.Valid, v.Reason)
	}

	rec, err := led.FindPass(ctx, res.Token)
	if err != nil {
		t.Fatalf("find pass: %v", err)
	}
	if rec.Status != ledger.PassStatusExpired {
		t.Fatalf("lazy expiry should flip durable status, got %s", rec.Status)
	}
}

func TestRevocationIsTerminal(t *testing.T) {
	svc, led, walletID := setupService(t)
	ctx := context.Background()
	ledger.SeedBalance(led, walletID, 10_000)

	res, err := svc.Purchase(ctx, PurchaseInput{WalletID: walletID, VenueID: "venue-1", OptionID: "night"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	rev, err := svc.Revoke(ctx, res.Token, "lost device")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if rev.Reason != "lost device" {
		t.Fatalf("unexpected revocation: %+v", rev)
	}

	// Still inside the natural validity window, but revocation wins.
	v, err := svc.Validate(ctx, res.Token, walletID, "venue-1")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.Valid || v.Reason != ReasonRevoked {
		t.Fatalf("revoked pass must stay invalid, got valid=%t reason=%q", v.Valid, v.Reason)
	}

	again, err := svc.Revoke(ctx, res.Token, "different reason")
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if again.Reason != "lost device" || !again.RevokedAt.Equal(rev.RevokedAt) {
		t.Fatalf("repeat revoke must return original record, got %+v", again)
	}
}

func TestPurchaseReplaySameCorrelation(t *testing.T) {
	svc, led, walletID := setupService(t)
	ctx := context.Background()
	ledger.SeedBalance(led, walletID, 10_000)

	input := PurchaseInput{WalletID: walletID, VenueID: "venue-1", OptionID: "night", CorrelationID: "buy-1"}
	original, err := svc.Purchase(ctx, input)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	replay, err := svc.Purchase(ctx, input)
	if !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if replay.Token != original.Token {
		t.Fatalf("replay must return the original token")
	}

	balance, _ := led.Balance(ctx, walletID)
	if balance != 7_500 {
		t.Fatalf("replay double-charged: balance %d", balance)
	}
}
