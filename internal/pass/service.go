package pass

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tapgate/tapgate/internal/ledger"
	"github.com/tapgate/tapgate/internal/notification"
)

// Service validates, sells and revokes ghost passes.
type Service struct {
	options    OptionRepository
	repo       Repository
	ledger     ledger.Ledger
	propagator *Propagator
}

// NewService builds a pass service instance.
func NewService(options OptionRepository, repo Repository, led ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{
		options:    options,
		repo:       repo,
		ledger:     led,
		propagator: NewPropagator(repo, notifier),
	}
}

// PurchaseInput captures a pass purchase request.
type PurchaseInput struct {
	WalletID      string
	VenueID       string
	OptionID      string
	CorrelationID string
}

// Purchase charges the wallet the option price and issues the token. The
// charge and the token creation commit together; a failed charge issues
// nothing. A replayed correlation id returns the original token alongside
// ledger.ErrDuplicateTransaction.
func (s *Service) Purchase(ctx context.Context, input PurchaseInput) (ledger.PurchaseResult, error) {
	opt, err := s.options.Option(ctx, input.OptionID)
	if err != nil {
		return ledger.PurchaseResult{}, err
	}
	if opt.VenueID != "" && input.VenueID != "" && opt.VenueID != input.VenueID {
		return ledger.PurchaseResult{}, fmt.Errorf("pass option %s is not valid for venue %s", opt.ID, input.VenueID)
	}
	venueID := input.VenueID
	if venueID == "" {
		venueID = opt.VenueID
	}
	if input.CorrelationID == "" {
		input.CorrelationID = uuid.NewString()
	}

	return s.ledger.PurchasePass(ctx, ledger.PurchaseInput{
		WalletID:      input.WalletID,
		VenueID:       venueID,
		OptionID:      opt.ID,
		Price:         opt.Price,
		ValidFor:      opt.Validity,
		CorrelationID: input.CorrelationID,
	})
}

// Validation is the outcome of checking a token at a gate.
type Validation struct {
	Valid  bool
	Reason string
	Pass   ledger.PassRecord
}

// Validate checks a token for the presenting wallet and context. Expiry is
// evaluated lazily at validation time; revocation always wins, even over a
// token that would otherwise still be inside its window. The returned error
// is reserved for storage failures; an invalid token is a business outcome.
func (s *Service) Validate(ctx context.Context, token, walletID, venueID string) (Validation, error) {
	rec, err := s.repo.FindPass(ctx, token)
	if errors.Is(err, ledger.ErrPassNotFound) {
		return Validation{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Validation{}, err
	}

	switch {
	case rec.Status == ledger.PassStatusRevoked:
		return Validation{Reason: ReasonRevoked, Pass: rec}, nil
	case rec.WalletID != walletID:
		return Validation{Reason: ReasonWrongWallet, Pass: rec}, nil
	case venueID != "" && rec.VenueID != venueID:
		return Validation{Reason: ReasonWrongScope, Pass: rec}, nil
	case !rec.ExpiresAt.After(time.Now().UTC()):
		// Flip the durable state for display and audit. Best effort: the
		// validation outcome does not depend on the write.
		_ = s.repo.MarkPassExpired(ctx, token)
		rec.Status = ledger.PassStatusExpired
		return Validation{Reason: ReasonExpired, Pass: rec}, nil
	}

	return Validation{Valid: true, Pass: rec}, nil
}

// Revoke marks a pass permanently invalid via the revocation propagator.
func (s *Service) Revoke(ctx context.Context, token, reason string) (ledger.Revocation, error) {
	return s.propagator.Revoke(ctx, token, reason)
}
