package admission

// Denial reason codes. Every denied decision carries one of these (or a pass
// validation reason) so the scanning surface can show a human-readable cause
// instead of a generic failure.
const (
	ReasonVenueNotFound       = "venue_not_found"
	ReasonGatewayNotFound     = "gateway_not_found"
	ReasonGatewayDisabled     = "gateway_disabled"
	ReasonWalletNotAccepted   = "wallet_not_accepted"
	ReasonEntryCapReached     = "entry_cap_reached"
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonPassRequired        = "pass_required"
)
