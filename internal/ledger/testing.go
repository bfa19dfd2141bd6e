package ledger

// SeedBalance is a test helper that sets a wallet balance directly when using
// the in-memory processor. It bypasses the ledger trail on purpose.
func SeedBalance(l Ledger, walletID string, amount int64) {
	if mem, ok := l.(*InMemory); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[walletID] = amount
	}
}
