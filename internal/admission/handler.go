package admission

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tapgate/tapgate/internal/ledger"
	"github.com/tapgate/tapgate/internal/wallet"
)

// Handler exposes admission HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an admission handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type processRequest struct {
	WalletID      string `json:"wallet_id"`
	VenueID       string `json:"venue_id"`
	GatewayID     string `json:"gateway_id"`
	Method        string `json:"interaction_method"`
	CorrelationID string `json:"correlation_id"`
	PassToken     string `json:"pass_token"`
}

// Process handles a scan/tap event. Both approvals and denials come back as
// 200s with an outcome field; 4xx is reserved for malformed requests and
// unknown wallets.
func (h *Handler) Process(c *fiber.Ctx) error {
	var req processRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	decision, err := h.service.Process(c.UserContext(), ProcessInput{
		WalletID:      req.WalletID,
		VenueID:       req.VenueID,
		GatewayID:     req.GatewayID,
		Method:        req.Method,
		CorrelationID: req.CorrelationID,
		PassToken:     req.PassToken,
	})
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	body := fiber.Map{
		"outcome": strings.ToUpper(decision.Outcome),
	}
	if decision.Outcome == ledger.OutcomeApproved {
		body["entry_type"] = decision.EntryType
		body["entry_number"] = decision.EntryNumber
		body["fee"] = decision.Fee
		body["fee_breakdown"] = decision.Breakdown
		body["receipt_id"] = decision.ReceiptID
		body["balance"] = decision.Balance
		if decision.Replayed {
			body["replayed"] = true
		}
	} else {
		body["reason"] = decision.Reason
		if decision.Shortfall > 0 {
			body["shortfall"] = decision.Shortfall
		}
	}
	return c.Status(http.StatusOK).JSON(body)
}

// Eligibility previews the next admission without mutating anything.
func (h *Handler) Eligibility(c *fiber.Ctx) error {
	walletID := c.Query("wallet_id")
	venueID := c.Query("venue_id")

	el, err := h.service.CheckEligibility(c.UserContext(), walletID, venueID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	body := fiber.Map{
		"allowed":       el.Allowed,
		"entry_type":    el.EntryType,
		"entry_number":  el.EntryNumber,
		"fee":           el.Fee,
		"pass_required": el.PassRequired,
	}
	if !el.Allowed {
		body["reason"] = el.Reason
		if el.Shortfall > 0 {
			body["shortfall"] = el.Shortfall
		}
	}
	return c.Status(http.StatusOK).JSON(body)
}

// History lists a wallet's entry events.
func (h *Handler) History(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	venueID := c.Query("venue_id")
	limit := c.QueryInt("limit", 50)

	events, err := h.service.History(c.UserContext(), walletID, venueID, limit)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	items := make([]fiber.Map, 0, len(events))
	for _, e := range events {
		items = append(items, fiber.Map{
			"id":            e.ID,
			"venue_id":      e.VenueID,
			"gateway_id":    e.GatewayID,
			"entry_type":    e.EntryType,
			"entry_number":  e.EntryNumber,
			"outcome":       e.Outcome,
			"reason":        e.Reason,
			"fee_total":     e.FeeTotal,
			"fee_breakdown": e.Breakdown,
			"receipt_id":    e.ReceiptID,
			"created_at":    e.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"wallet_id": walletID, "events": items})
}
