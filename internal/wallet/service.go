package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tapgate/tapgate/internal/ledger"
)

const statusActive = "active"

// Service exposes wallet operations backed by the transaction processor.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService builds a wallet service instance.
func NewService(repo Repository, ledger ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// CreateOrFetch returns the wallet bound to a device, provisioning it on the
// first admission attempt from that device. The operation is idempotent per
// device binding identifier.
func (s *Service) CreateOrFetch(ctx context.Context, deviceBindingID string) (Wallet, int64, error) {
	if deviceBindingID == "" {
		return Wallet{}, 0, fmt.Errorf("device binding id is required")
	}
	fingerprint := Fingerprint(deviceBindingID)

	w, err := s.repo.FindByFingerprint(ctx, fingerprint)
	if errors.Is(err, ErrNotFound) {
		w = Wallet{
			ID:                uuid.NewString(),
			DeviceFingerprint: fingerprint,
			Status:            statusActive,
			CreatedAt:         time.Now().UTC(),
		}
		if err := s.repo.Create(ctx, w); err != nil {
			return Wallet{}, 0, err
		}
		// A concurrent first scan may have won the insert; the fingerprint
		// lookup is authoritative either way.
		if w, err = s.repo.FindByFingerprint(ctx, fingerprint); err != nil {
			return Wallet{}, 0, err
		}
		if err := s.ledger.EnsureWallet(ctx, w.ID); err != nil {
			return Wallet{}, 0, err
		}
	} else if err != nil {
		return Wallet{}, 0, err
	}

	balance, err := s.ledger.Balance(ctx, w.ID)
	if err != nil {
		return Wallet{}, 0, err
	}
	return w, balance, nil
}

// Get retrieves wallet metadata.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// Balance returns the ledger balance for the wallet.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.ledger.Balance(ctx, w.ID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: w.ID, Amount: amount, AsOf: time.Now().UTC()}, nil
}
