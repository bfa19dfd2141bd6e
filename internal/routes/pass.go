package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tapgate/tapgate/internal/pass"
)

// RegisterPassRoutes wires ghost pass endpoints.
func RegisterPassRoutes(r fiber.Router, h *pass.Handler) {
	r.Post("/passes", h.Purchase)
	r.Post("/passes/validate", h.Validate)
	r.Post("/passes/revoke", h.Revoke)
}
