package pass

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tapgate/tapgate/internal/ledger"
)

// Handler exposes ghost pass HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a pass handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type purchaseRequest struct {
	WalletID      string `json:"wallet_id"`
	VenueID       string `json:"venue_id"`
	PassOptionID  string `json:"pass_option_id"`
	CorrelationID string `json:"correlation_id"`
}

// Purchase sells a pass to a wallet.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Purchase(c.UserContext(), PurchaseInput{
		WalletID:      req.WalletID,
		VenueID:       req.VenueID,
		OptionID:      req.PassOptionID,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		var insufficient *ledger.InsufficientBalanceError
		switch {
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return c.Status(http.StatusOK).JSON(purchaseResponse(res))
		case errors.As(err, &insufficient):
			return c.Status(http.StatusPaymentRequired).JSON(fiber.Map{
				"error":     "insufficient balance",
				"required":  insufficient.Required,
				"available": insufficient.Available,
				"shortfall": insufficient.Shortfall(),
			})
		case errors.Is(err, ledger.ErrWalletNotFound), errors.Is(err, ErrOptionNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(purchaseResponse(res))
}

type validateRequest struct {
	Token    string `json:"token"`
	WalletID string `json:"wallet_id"`
	VenueID  string `json:"venue_id"`
}

// Validate checks a token at a gate without charging anything.
func (h *Handler) Validate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" || req.WalletID == "" {
		return fiber.NewError(http.StatusBadRequest, "token and wallet_id are required")
	}

	v, err := h.service.Validate(c.UserContext(), req.Token, req.WalletID, req.VenueID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	body := fiber.Map{"allowed": v.Valid}
	if !v.Valid {
		body["reason"] = v.Reason
	}
	return c.Status(http.StatusOK).JSON(body)
}

type revokeRequest struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

// Revoke permanently invalidates a token.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	var req revokeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" {
		return fiber.NewError(http.StatusBadRequest, "token is required")
	}

	rev, err := h.service.Revoke(c.UserContext(), req.Token, req.Reason)
	if err != nil {
		if errors.Is(err, ledger.ErrPassNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"token":      rev.Token,
		"reason":     rev.Reason,
		"revoked_at": rev.RevokedAt,
	})
}

func purchaseResponse(res ledger.PurchaseResult) fiber.Map {
	return fiber.Map{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"balance":    res.Balance,
	}
}
