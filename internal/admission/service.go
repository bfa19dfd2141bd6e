package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tapgate/tapgate/internal/fees"
	"github.com/tapgate/tapgate/internal/gateway"
	"github.com/tapgate/tapgate/internal/ledger"
	"github.com/tapgate/tapgate/internal/pass"
	"github.com/tapgate/tapgate/internal/wallet"
)

// Service is the admission resolver: it decides entry eligibility, computes
// the fee owed, and hands approved charges to the transaction processor.
type Service struct {
	wallets  *wallet.Service
	gateways gateway.Repository
	policy   *fees.Policy
	passes   *pass.Service
	ledger   ledger.Ledger
	repo     Repository
	logger   *slog.Logger
}

// NewService builds an admission resolver.
func NewService(wallets *wallet.Service, gateways gateway.Repository, policy *fees.Policy, passes *pass.Service, led ledger.Ledger, repo Repository, logger *slog.Logger) *Service {
	return &Service{
		wallets:  wallets,
		gateways: gateways,
		policy:   policy,
		passes:   passes,
		ledger:   led,
		repo:     repo,
		logger:   logger,
	}
}

// ProcessInput captures one scan/tap at a gateway.
type ProcessInput struct {
	WalletID      string
	VenueID       string
	GatewayID     string
	Method        string
	CorrelationID string
	PassToken     string
}

// Decision is the outcome of an admission attempt. Denials are ordinary
// results, not errors: they carry a reason code and, for balance denials, the
// shortfall needed to start a funding flow.
type Decision struct {
	Outcome     string
	EntryType   string
	EntryNumber int
	Fee         int64
	Breakdown   ledger.Breakdown
	Reason      string
	Shortfall   int64
	ReceiptID   string
	Balance     int64
	Replayed    bool
}

// Process resolves a scan/tap event end to end. The only call that may
// mutate balance or ledger state for admission.
func (s *Service) Process(ctx context.Context, input ProcessInput) (Decision, error) {
	if input.WalletID == "" || input.VenueID == "" || input.GatewayID == "" {
		return Decision{}, fmt.Errorf("wallet_id, venue_id and gateway_id are required")
	}
	if input.CorrelationID == "" {
		return Decision{}, fmt.Errorf("correlation_id is required")
	}

	w, err := s.wallets.Get(ctx, input.WalletID)
	if err != nil {
		return Decision{}, err
	}

	venue, err := s.gateways.Venue(ctx, input.VenueID)
	if errors.Is(err, gateway.ErrVenueNotFound) {
		return s.deny(ctx, input, ReasonVenueNotFound, 0)
	}
	if err != nil {
		return Decision{}, err
	}
	if reason, ok := s.checkGate(ctx, input.VenueID, input.GatewayID); !ok {
		return s.deny(ctx, input, reason, 0)
	}

	var initial, reentry ledger.ChargePlan
	if venue.PassRequired {
		// Event-pass mode: the pass substitutes for the per-scan fee, so a
		// successful admission charges nothing at the gate.
		if input.PassToken == "" {
			return s.deny(ctx, input, ReasonPassRequired, 0)
		}
		v, err := s.passes.Validate(ctx, input.PassToken, w.ID, input.VenueID)
		if err != nil {
			return Decision{}, err
		}
		if !v.Valid {
			return s.deny(ctx, input, v.Reason, 0)
		}
	} else {
		if initial, reentry, err = s.policy.Plans(ctx, input.VenueID); err != nil {
			return Decision{}, err
		}
	}

	res, err := s.ledger.Admit(ctx, ledger.AdmitInput{
		WalletID:      w.ID,
		VenueID:       input.VenueID,
		GatewayID:     input.GatewayID,
		Method:        input.Method,
		CorrelationID: input.CorrelationID,
		Initial:       initial,
		Reentry:       reentry,
		MaxEntries:    venue.DailyEntryCap,
		PassToken:     input.PassToken,
	})
	switch {
	case err == nil, errors.Is(err, ledger.ErrDuplicateTransaction):
		return Decision{
			Outcome:     ledger.OutcomeApproved,
			EntryType:   res.EntryType,
			EntryNumber: res.EntryNumber,
			Fee:         res.Fee,
			Breakdown:   res.Breakdown,
			ReceiptID:   res.ReceiptID,
			Balance:     res.Balance,
			Replayed:    errors.Is(err, ledger.ErrDuplicateTransaction),
		}, nil
	case errors.Is(err, ledger.ErrEntryCapReached):
		return s.deny(ctx, input, ReasonEntryCapReached, 0)
	default:
		var insufficient *ledger.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			d, derr := s.deny(ctx, input, ReasonInsufficientBalance, insufficient.Required)
			d.Shortfall = insufficient.Shortfall()
			d.Balance = insufficient.Available
			return d, derr
		}
		return Decision{}, err
	}
}

// Eligibility is a read-only preview of the next admission at a venue.
type Eligibility struct {
	Allowed      bool
	EntryType    string
	EntryNumber  int
	Fee          int64
	Breakdown    ledger.Breakdown
	Reason       string
	Shortfall    int64
	PassRequired bool
}

// CheckEligibility previews the entry type, number and fee for the wallet's
// next scan at a venue. It never mutates anything; the numbers it reports can
// shift under concurrent admissions and only the processor's commit is
// authoritative.
func (s *Service) CheckEligibility(ctx context.Context, walletID, venueID string) (Eligibility, error) {
	if walletID == "" || venueID == "" {
		return Eligibility{}, fmt.Errorf("wallet_id and venue_id are required")
	}
	w, err := s.wallets.Get(ctx, walletID)
	if err != nil {
		return Eligibility{}, err
	}
	venue, err := s.gateways.Venue(ctx, venueID)
	if errors.Is(err, gateway.ErrVenueNotFound) {
		return Eligibility{Reason: ReasonVenueNotFound}, nil
	}
	if err != nil {
		return Eligibility{}, err
	}

	latest, err := s.repo.LatestEntryNumber(ctx, w.ID, venueID)
	if err != nil {
		return Eligibility{}, err
	}
	next := latest + 1

	el := Eligibility{
		EntryType:    ledger.EntryTypeReentry,
		EntryNumber:  next,
		PassRequired: venue.PassRequired,
	}
	if next == 1 {
		el.EntryType = ledger.EntryTypeInitial
	}

	if venue.DailyEntryCap > 0 && next > venue.DailyEntryCap {
		el.Reason = ReasonEntryCapReached
		return el, nil
	}
	if venue.PassRequired {
		// Gate charge is zero in event-pass mode; the decision rests on the
		// token presented at scan time.
		el.Allowed = true
		return el, nil
	}

	initial, reentry, err := s.policy.Plans(ctx, venueID)
	if err != nil {
		return Eligibility{}, err
	}
	plan := reentry
	if next == 1 {
		plan = initial
	}
	el.Fee = plan.Fee
	el.Breakdown = plan.Breakdown

	balance, err := s.ledger.Balance(ctx, w.ID)
	if err != nil {
		return Eligibility{}, err
	}
	if plan.Fee > balance {
		el.Reason = ReasonInsufficientBalance
		el.Shortfall = plan.Fee - balance
		return el, nil
	}

	el.Allowed = true
	return el, nil
}

// History lists admission decisions for a wallet, newest first.
func (s *Service) History(ctx context.Context, walletID, venueID string, limit int) ([]ledger.EntryEvent, error) {
	if _, err := s.wallets.Get(ctx, walletID); err != nil {
		return nil, err
	}
	return s.repo.EntryEvents(ctx, walletID, venueID, limit)
}

func (s *Service) checkGate(ctx context.Context, venueID, gatewayID string) (string, bool) {
	point, err := s.gateways.Point(ctx, gatewayID)
	if err != nil || point.VenueID != venueID {
		return ReasonGatewayNotFound, false
	}
	if !point.Enabled {
		return ReasonGatewayDisabled, false
	}
	if !point.AcceptsWallet {
		return ReasonWalletNotAccepted, false
	}
	return "", true
}

// deny records the denial event and returns the decision. Recording is best
// effort: a storage hiccup must not turn a clean denial into a 500 at the
// gate.
func (s *Service) deny(ctx context.Context, input ProcessInput, reason string, attemptedFee int64) (Decision, error) {
	event := ledger.EntryEvent{
		WalletID:  input.WalletID,
		VenueID:   input.VenueID,
		GatewayID: input.GatewayID,
		Outcome:   ledger.OutcomeDenied,
		Reason:    reason,
		FeeTotal:  attemptedFee,
	}
	if err := s.repo.RecordDenial(ctx, event); err != nil && s.logger != nil {
		s.logger.Error("record denial", "wallet_id", input.WalletID, "venue_id", input.VenueID, "reason", reason, "error", err)
	}
	return Decision{Outcome: ledger.OutcomeDenied, Reason: reason}, nil
}
