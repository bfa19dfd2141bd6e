package wallet

import (
	"context"
	"testing"

	"github.com/tapgate/tapgate/internal/ledger"
)

func TestCreateOrFetchIdempotentPerDevice(t *testing.T) {
	repo := NewMemoryRepository()
	led := ledger.NewInMemory()
	svc := NewService(repo, led)

	ctx := context.Background()
	first, balance, err := svc.CreateOrFetch(ctx, "device-abc")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if balance != 0 {
		t.Fatalf("new wallet should start empty, got %d", balance)
	}

	second, _, err := svc.CreateOrFetch(ctx, "device-abc")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("same device must map to same wallet: %s vs %s", second.ID, first.ID)
	}

	other, _, err := svc.CreateOrFetch(ctx, "device-xyz")
	if err != nil {
		t.Fatalf("create other: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("distinct devices must get distinct wallets")
	}
}

func TestCreateOrFetchRequiresDeviceBinding(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	if _, _, err := svc.CreateOrFetch(context.Background(), ""); err == nil {
		t.Fatal("expected validation error for empty device binding id")
	}
}

func TestBalanceReflectsLedger(t *testing.T) {
	repo := NewMemoryRepository()
	led := ledger.NewInMemory()
	svc := NewService(repo, led)

	ctx := context.Background()
	w, _, err := svc.CreateOrFetch(ctx, "device-abc")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ledger.SeedBalance(led, w.ID, 2_500)

	balance, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 2_500 {
		t.Fatalf("expected balance 2500, got %d", balance.Amount)
	}
}

func TestFingerprintStableAndOpaque(t *testing.T) {
	a := Fingerprint("device-abc")
	b := Fingerprint("device-abc")
	c := Fingerprint("device-abd")
	if a != b {
		t.Fatal("fingerprint must be deterministic")
	}
	if a == c {
		t.Fatal("distinct devices must not collide")
	}
	if a == "device-abc" || len(a) != 64 {
		t.Fatalf("fingerprint should be a 256-bit hex digest, got %q", a)
	}
}
