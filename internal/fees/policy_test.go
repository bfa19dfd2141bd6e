package fees

import (
	"context"
	"testing"
)

func TestDistributeConservesTotal(t *testing.T) {
	d := Distribution{PlatformPct: 40, VenuePct: 35, PoolPct: 15, PromoterPct: 10}
	if err := d.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	for total := int64(0); total <= 10_000; total++ {
		b := Distribute(total, d)
		if b.Total() != total {
			t.Fatalf("leakage at total %d: shares sum to %d", total, b.Total())
		}
		if b.Venue < 0 || b.Pool < 0 || b.Promoter < 0 || b.Platform < 0 {
			t.Fatalf("negative share at total %d: %+v", total, b)
		}
	}
}

func TestDistributeRemainderGoesToPlatform(t *testing.T) {
	d := Distribution{PlatformPct: 25, VenuePct: 25, PoolPct: 25, PromoterPct: 25}
	b := Distribute(103, d)
	// 103/4 floors to 25 each; the 3-cent remainder lands on platform.
	if b.Venue != 25 || b.Pool != 25 || b.Promoter != 25 {
		t.Fatalf("unexpected floor shares: %+v", b)
	}
	if b.Platform != 28 {
		t.Fatalf("expected platform 28, got %d", b.Platform)
	}
}

func TestDistributionValidate(t *testing.T) {
	if err := (Distribution{PlatformPct: 50, VenuePct: 50}).Validate(); err != nil {
		t.Fatalf("50/50 should validate: %v", err)
	}
	if err := (Distribution{PlatformPct: 60, VenuePct: 50}).Validate(); err == nil {
		t.Fatal("sum over 100 must be rejected")
	}
	if err := (Distribution{PlatformPct: 110, VenuePct: -10}).Validate(); err == nil {
		t.Fatal("negative share must be rejected")
	}
}

func TestConfigFeeFallback(t *testing.T) {
	cfg := Config{InitialEntryFee: 500, ReentryFee: 100, PlatformReentryFee: 50, DefaultFee: 250}
	if got := cfg.Fee(ContextInitialEntry); got != 500 {
		t.Fatalf("initial: got %d", got)
	}
	if got := cfg.Fee(ChargeContext("vip.lounge")); got != 250 {
		t.Fatalf("unknown context should fall back to default fee, got %d", got)
	}
}

func TestPolicyPlansDualReentryFee(t *testing.T) {
	repo := NewMemoryRepository()
	repo.SetConfig(Config{VenueID: "venue-1", Version: 1, InitialEntryFee: 500, ReentryFee: 100, PlatformReentryFee: 50})
	repo.SetDistribution(Distribution{VenueID: "venue-1", Version: 1, PlatformPct: 100})

	initial, reentry, err := NewPolicy(repo).Plans(context.Background(), "venue-1")
	if err != nil {
		t.Fatalf("plans: %v", err)
	}
	if initial.Fee != 500 || initial.Breakdown.Platform != 500 {
		t.Fatalf("unexpected initial plan: %+v", initial)
	}
	if reentry.Fee != 150 || reentry.Breakdown.Total() != 150 {
		t.Fatalf("re-entry should sum venue and platform components: %+v", reentry)
	}
}

func TestPolicyPlansFallBackToDefaultVenue(t *testing.T) {
	repo := NewMemoryRepository()
	repo.SetConfig(Config{VenueID: DefaultVenueID, Version: 1, InitialEntryFee: 200})
	repo.SetDistribution(Distribution{VenueID: DefaultVenueID, Version: 1, PlatformPct: 100})

	initial, _, err := NewPolicy(repo).Plans(context.Background(), "unknown-venue")
	if err != nil {
		t.Fatalf("plans: %v", err)
	}
	if initial.Fee != 200 {
		t.Fatalf("expected default venue fee 200, got %d", initial.Fee)
	}
}

func TestPolicyPlansRejectInvalidSplit(t *testing.T) {
	repo := NewMemoryRepository()
	repo.SetConfig(Config{VenueID: "venue-1", InitialEntryFee: 500})
	repo.SetDistribution(Distribution{VenueID: "venue-1", PlatformPct: 90})

	if _, _, err := NewPolicy(repo).Plans(context.Background(), "venue-1"); err == nil {
		t.Fatal("expected invalid distribution to be rejected")
	}
}
