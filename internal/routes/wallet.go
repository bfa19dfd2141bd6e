package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tapgate/tapgate/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.CreateOrFetch)
	r.Get("/wallets/:walletId/balance", h.Balance)
	r.Get("/wallets/:walletId/ledger", h.Ledger)
}
