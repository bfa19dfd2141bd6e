package wallet

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint derives the stable storage key for a device binding identifier.
// Hashing keeps the opaque device identifier out of the database while
// remaining deterministic, so repeat scans from the same device always map to
// the same wallet.
func Fingerprint(deviceBindingID string) string {
	sum := blake2b.Sum256([]byte(deviceBindingID))
	return hex.EncodeToString(sum[:])
}
