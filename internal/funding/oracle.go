package funding

import (
	"context"

	"github.com/google/uuid"
)

// FundingOracle represents the external payment rail that funds wallets. The
// core never sees card data outcomes beyond an approved/declined decision and
// a settlement reference.
type FundingOracle interface {
	AuthorizeTopUp(ctx context.Context, input TopUpAuthorization) (AuthorizationDecision, error)
}

// TopUpAuthorization encapsulates details needed for a top-up authorization.
type TopUpAuthorization struct {
	CardNumber string
	Expiry     string
	CVV        string
	Amount     int64
}

// AuthorizationDecision captures the oracle's response. The reference is the
// unique external funding reference the ledger dedupes on.
type AuthorizationDecision struct {
	Reference string
	Status    string
}

// StaticOracle simulates an always-approving funding provider.
type StaticOracle struct{}

// AuthorizeTopUp approves the request with a synthetic reference.
func (StaticOracle) AuthorizeTopUp(_ context.Context, _ TopUpAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: "approved"}, nil
}
