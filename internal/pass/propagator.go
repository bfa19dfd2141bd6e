package pass

import (
	"context"
	"fmt"

	"github.com/tapgate/tapgate/internal/ledger"
	"github.com/tapgate/tapgate/internal/notification"
)

// Propagator performs the one-way revocation transition. It writes straight
// to durable storage, so every validator read after Revoke returns sees the
// revoked state; there is no cache that could serve a stale answer.
type Propagator struct {
	repo     Repository
	notifier notification.Notifier
}

// NewPropagator builds a revocation propagator.
func NewPropagator(repo Repository, notifier notification.Notifier) *Propagator {
	return &Propagator{repo: repo, notifier: notifier}
}

// Revoke marks the pass permanently invalid. Revoking an already-revoked
// pass is a no-op returning the original revocation record.
func (p *Propagator) Revoke(ctx context.Context, token, reason string) (ledger.Revocation, error) {
	rev, err := p.repo.RevokePass(ctx, token, reason)
	if err != nil {
		return ledger.Revocation{}, err
	}

	if p.notifier != nil {
		_ = p.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindPassRevoked,
			Destination: token,
			Body:        fmt.Sprintf("pass revoked: %s", rev.Reason),
		})
	}
	return rev, nil
}
