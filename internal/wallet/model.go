package wallet

import "time"

// Wallet is an anonymous stored-value account bound to a single device. The
// raw device binding identifier never reaches storage; only its fingerprint
// does.
type Wallet struct {
	ID                string
	DeviceFingerprint string
	Status            string
	CreatedAt         time.Time
}

// Balance encapsulates available funds for a wallet.
type Balance struct {
	WalletID string
	Amount   int64
	AsOf     time.Time
}
