package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tapgate/tapgate/internal/admission"
)

// RegisterAdmissionRoutes wires the gate scan endpoints. The scan limiter
// throttles the write path only; eligibility previews and history stay cheap.
func RegisterAdmissionRoutes(r fiber.Router, h *admission.Handler, scanLimiter fiber.Handler) {
	r.Post("/admissions", scanLimiter, h.Process)
	r.Get("/admissions/eligibility", h.Eligibility)
	r.Get("/wallets/:walletId/admissions", h.History)
}
