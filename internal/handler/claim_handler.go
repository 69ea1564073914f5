package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/vitale-labs/voucher-service/internal/middleware"
	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/internal/service"
)

// ClaimServiceInterface defines the interface for claim business logic.
type ClaimServiceInterface interface {
	Claim(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error)
}

// ClaimHandler handles HTTP requests for voucher claims.
type ClaimHandler struct {
	service   ClaimServiceInterface
	validator *validator.Validate
}

// NewClaimHandler creates a new ClaimHandler with the given service and validator.
func NewClaimHandler(svc ClaimServiceInterface, v *validator.Validate) *ClaimHandler {
	return &ClaimHandler{service: svc, validator: v}
}

// ClaimVoucher handles POST /api/vouchers/claim. The route runs behind the
// Authenticate middleware; the token's phone number must match the claim's,
// so a retailer can only claim for the phone they verified.
func (h *ClaimHandler) ClaimVoucher(c *fiber.Ctx) error {
	var req model.ClaimVoucherRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if claims := middleware.ClaimsFrom(c); claims == nil || claims.PhoneNo != req.PhoneNo {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "phone number does not match verified session"})
	}

	voucher, err := h.service.Claim(c.Context(), req.PhoneNo, req.BatchNo)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		case errors.Is(err, service.ErrNotRetailer):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only retailers can claim vouchers"})
		case errors.Is(err, service.ErrVoucherNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "voucher not found"})
		case errors.Is(err, service.ErrAlreadyClaimed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "voucher already claimed"})
		case errors.Is(err, service.ErrVoucherExpired):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "voucher expired"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("phone_no", req.PhoneNo).
			Str("batch_no", req.BatchNo).
			Msg("failed to claim voucher")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("phone_no", req.PhoneNo).
		Str("batch_no", req.BatchNo).
		Msg("voucher claimed successfully")

	return c.JSON(voucher)
}
