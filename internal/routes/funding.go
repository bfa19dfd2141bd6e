package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tapgate/tapgate/internal/funding"
)

// RegisterFundingRoutes wires wallet top-up endpoints. The idempotency
// middleware guards the card path when Redis is available; settlement
// notifications carry their own funding reference and dedupe in the ledger.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler, idem fiber.Handler) {
	if idem != nil {
		r.Post("/wallets/:walletId/topup", idem, h.TopUp)
	} else {
		r.Post("/wallets/:walletId/topup", h.TopUp)
	}
	r.Post("/wallets/:walletId/funding/notifications", h.Credit)
}
