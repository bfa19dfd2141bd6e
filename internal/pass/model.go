package pass

import (
	"errors"
	"time"
)

// ErrOptionNotFound occurs when the referenced pass option is unknown.
var ErrOptionNotFound = errors.New("pass option not found")

// Validation denial reasons. A denial is a normal business outcome, so these
// travel as reason codes rather than errors.
const (
	ReasonNotFound    = "pass_not_found"
	ReasonWrongWallet = "pass_wrong_wallet"
	ReasonWrongScope  = "pass_wrong_scope"
	ReasonExpired     = "pass_expired"
	ReasonRevoked     = "pass_revoked"
)

// Option is a purchasable pass product: a venue scope, a price and a
// validity window measured from purchase time. Administrative configuration,
// read-only here.
type Option struct {
	ID       string
	VenueID  string
	Name     string
	Price    int64
	Validity time.Duration
}
