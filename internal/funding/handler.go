package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tapgate/tapgate/internal/ledger"
	"github.com/tapgate/tapgate/internal/wallet"
)

// Handler exposes HTTP endpoints for wallet funding.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type topUpRequest struct {
	CardNumber string `json:"card_number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	Amount     int64  `json:"amount"`
}

// TopUp funds a wallet from a card through the external oracle.
func (h *Handler) TopUp(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	var req topUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.TopUp(c.UserContext(), TopUpInput{
		WalletID:   walletID,
		Amount:     req.Amount,
		CardNumber: req.CardNumber,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
	})
	if err != nil {
		return mapError(c, result, err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

type creditRequest struct {
	Amount     int64  `json:"amount"`
	FundingRef string `json:"funding_ref"`
}

// Credit applies an external funding notification (settlement webhook style).
func (h *Handler) Credit(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	var req creditRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Credit(c.UserContext(), walletID, req.Amount, req.FundingRef)
	if err != nil {
		return mapError(c, result, err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

func mapError(c *fiber.Ctx, result Result, err error) error {
	switch {
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return c.Status(http.StatusOK).JSON(toResponse(result))
	case errors.Is(err, ledger.ErrWalletNotFound), errors.Is(err, wallet.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}

func toResponse(result Result) fiber.Map {
	return fiber.Map{
		"funding_ref":  result.FundingRef,
		"balance":      result.Balance,
		"completed_at": result.CompletedAt,
	}
}
