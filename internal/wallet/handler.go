package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tapgate/tapgate/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
	ledger  ledger.Ledger
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service, ledger ledger.Ledger) *Handler {
	return &Handler{service: service, ledger: ledger}
}

type createRequest struct {
	DeviceBindingID string `json:"device_binding_id"`
}

// CreateOrFetch provisions or returns the wallet bound to the caller's device.
func (h *Handler) CreateOrFetch(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, balance, err := h.service.CreateOrFetch(c.UserContext(), req.DeviceBindingID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id":  w.ID,
		"status":     w.Status,
		"balance":    balance,
		"created_at": w.CreatedAt,
	})
}

// Balance returns the wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	balance, err := h.service.Balance(c.UserContext(), walletID)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id": walletID,
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}

// Ledger returns the most recent ledger entries for the wallet.
func (h *Handler) Ledger(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	limit := c.QueryInt("limit", 50)

	if _, err := h.service.Get(c.UserContext(), walletID); err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	entries, err := h.ledger.Entries(c.UserContext(), walletID, limit)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	items := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		items = append(items, fiber.Map{
			"id":             e.ID,
			"delta":          e.Delta,
			"balance_before": e.BalanceBefore,
			"balance_after":  e.BalanceAfter,
			"category":       e.Category,
			"correlation_id": e.CorrelationID,
			"metadata":       e.Metadata,
			"created_at":     e.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"wallet_id": walletID, "entries": items})
}
