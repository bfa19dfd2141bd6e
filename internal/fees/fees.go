package fees

import (
	"fmt"
	"time"

	"github.com/tapgate/tapgate/internal/ledger"
)

// ChargeContext identifies the interaction being priced.
type ChargeContext string

const (
	ContextInitialEntry    ChargeContext = "entry.initial"
	ContextReentry         ChargeContext = "entry.reentry"
	ContextReentryPlatform ChargeContext = "entry.reentry.platform"
)

// DefaultVenueID keys the fallback configuration row used when a venue has no
// dedicated config.
const DefaultVenueID = "default"

// Config is a versioned per-venue fee schedule, stored durably and fetched
// per request so administrative writes survive restarts and reach every
// server instance.
type Config struct {
	VenueID            string
	Version            int
	InitialEntryFee    int64
	ReentryFee         int64
	PlatformReentryFee int64
	DefaultFee         int64
	UpdatedAt          time.Time
}

// Fee returns the flat fee in minor units for a charge context. Unknown
// contexts fall back to the configured default fee.
func (c Config) Fee(ctx ChargeContext) int64 {
	switch ctx {
	case ContextInitialEntry:
		return c.InitialEntryFee
	case ContextReentry:
		return c.ReentryFee
	case ContextReentryPlatform:
		return c.PlatformReentryFee
	default:
		return c.DefaultFee
	}
}

// Distribution is a versioned percentage split of a charge among the four
// stakeholders. The percentages must sum to exactly 100.
type Distribution struct {
	VenueID     string
	Version     int
	PlatformPct int
	VenuePct    int
	PoolPct     int
	PromoterPct int
}

// Validate rejects splits that do not sum to 100 or carry negative shares.
func (d Distribution) Validate() error {
	for _, pct := range []int{d.PlatformPct, d.VenuePct, d.PoolPct, d.PromoterPct} {
		if pct < 0 {
			return fmt.Errorf("distribution percentages must not be negative")
		}
	}
	if sum := d.PlatformPct + d.VenuePct + d.PoolPct + d.PromoterPct; sum != 100 {
		return fmt.Errorf("distribution percentages sum to %d, want 100", sum)
	}
	return nil
}

// Distribute splits totalFee into stakeholder shares. Each share is the floor
// of its percentage; the rounding remainder goes to the platform share, so the
// four shares always reconcile exactly with the total.
func Distribute(totalFee int64, d Distribution) ledger.Breakdown {
	b := ledger.Breakdown{
		Platform: totalFee * int64(d.PlatformPct) / 100,
		Venue:    totalFee * int64(d.VenuePct) / 100,
		Pool:     totalFee * int64(d.PoolPct) / 100,
		Promoter: totalFee * int64(d.PromoterPct) / 100,
	}
	b.Platform += totalFee - b.Total()
	return b
}
