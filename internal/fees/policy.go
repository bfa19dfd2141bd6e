package fees

import (
	"context"

	"github.com/tapgate/tapgate/internal/ledger"
)

// Policy answers pricing questions from the current configuration snapshot.
// It holds no state of its own; every call reads the durable configuration.
type Policy struct {
	repo Repository
}

// NewPolicy builds a policy over a configuration repository.
func NewPolicy(repo Repository) *Policy {
	return &Policy{repo: repo}
}

// Plans computes the charge plans for both entry types at a venue. The
// re-entry charge is the venue re-entry fee plus the platform re-entry fee,
// summed into a single charge.
func (p *Policy) Plans(ctx context.Context, venueID string) (initial, reentry ledger.ChargePlan, err error) {
	cfg, err := p.repo.Config(ctx, venueID)
	if err != nil {
		return ledger.ChargePlan{}, ledger.ChargePlan{}, err
	}
	dist, err := p.repo.Distribution(ctx, venueID)
	if err != nil {
		return ledger.ChargePlan{}, ledger.ChargePlan{}, err
	}
	if err := dist.Validate(); err != nil {
		return ledger.ChargePlan{}, ledger.ChargePlan{}, err
	}

	initialFee := cfg.Fee(ContextInitialEntry)
	reentryFee := cfg.Fee(ContextReentry) + cfg.Fee(ContextReentryPlatform)

	initial = ledger.ChargePlan{Fee: initialFee, Breakdown: Distribute(initialFee, dist)}
	reentry = ledger.ChargePlan{Fee: reentryFee, Breakdown: Distribute(reentryFee, dist)}
	return initial, reentry, nil
}
