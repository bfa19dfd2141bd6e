package funding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tapgate/tapgate/internal/ledger"
	"github.com/tapgate/tapgate/internal/notification"
	"github.com/tapgate/tapgate/internal/wallet"
)

// Service coordinates wallet funding through the external oracle and the
// transaction processor.
type Service struct {
	ledger   ledger.Ledger
	wallets  *wallet.Service
	oracle   FundingOracle
	notifier notification.Notifier
}

// NewService prepares a funding service.
func NewService(ledgerBackend ledger.Ledger, wallets *wallet.Service, oracle FundingOracle, notifier notification.Notifier) (*Service, error) {
	if wallets == nil {
		return nil, fmt.Errorf("wallet service is required")
	}
	if oracle == nil {
		oracle = StaticOracle{}
	}
	return &Service{ledger: ledgerBackend, wallets: wallets, oracle: oracle, notifier: notifier}, nil
}

// TopUpInput captures the required data for a card top-up.
type TopUpInput struct {
	WalletID   string
	Amount     int64
	CardNumber string
	Expiry     string
	CVV        string
}

// Result represents the domain outcome of a funding operation.
type Result struct {
	FundingRef  string
	Balance     int64
	CompletedAt time.Time
}

// TopUp authorizes a card payment with the oracle, then credits the wallet
// once under the oracle's settlement reference.
func (s *Service) TopUp(ctx context.Context, input TopUpInput) (Result, error) {
	if err := validateCardNumber(input.CardNumber); err != nil {
		return Result{}, err
	}
	if input.Amount <= 0 {
		return Result{}, fmt.Errorf("amount must be positive")
	}

	w, err := s.wallets.Get(ctx, input.WalletID)
	if err != nil {
		return Result{}, err
	}

	decision, err := s.oracle.AuthorizeTopUp(ctx, TopUpAuthorization{
		CardNumber: input.CardNumber,
		Expiry:     input.Expiry,
		CVV:        input.CVV,
		Amount:     input.Amount,
	})
	if err != nil {
		return Result{}, err
	}

	return s.Credit(ctx, w.ID, input.Amount, decision.Reference)
}

// Credit applies an external funding notification to the wallet. Duplicate
// notifications for the same reference return the original result alongside
// ledger.ErrDuplicateTransaction and never double-credit.
func (s *Service) Credit(ctx context.Context, walletID string, amount int64, fundingRef string) (Result, error) {
	res, err := s.ledger.Fund(ctx, walletID, amount, fundingRef)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			return Result{FundingRef: fundingRef, Balance: res.Balance, CompletedAt: time.Now().UTC()}, err
		}
		return Result{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWalletFunded,
			Destination: walletID,
			Body:        fmt.Sprintf("wallet credited %d (ref %s)", amount, fundingRef),
		})
	}

	return Result{FundingRef: fundingRef, Balance: res.Balance, CompletedAt: time.Now().UTC()}, nil
}

func validateCardNumber(card string) error {
	digits := strings.ReplaceAll(card, " ", "")
	if len(digits) < 12 || len(digits) > 19 {
		return fmt.Errorf("card number must be between 12 and 19 digits")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("card number must be numeric")
		}
	}
	return nil
}
