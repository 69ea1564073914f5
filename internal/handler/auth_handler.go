package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/internal/service"
)

// OTPServiceInterface defines the interface for OTP business logic.
type OTPServiceInterface interface {
	RequestCode(ctx context.Context, phoneNo string) error
	VerifyCode(ctx context.Context, phoneNo, code string) (*model.AuthResponse, error)
}

// AuthHandler handles OTP request and verification.
type AuthHandler struct {
	service   OTPServiceInterface
	validator *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given service and validator.
func NewAuthHandler(svc OTPServiceInterface, v *validator.Validate) *AuthHandler {
	return &AuthHandler{service: svc, validator: v}
}

// RequestOTP handles POST /api/auth/otp/request.
func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req model.RequestOTPRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.RequestCode(c.Context(), req.PhoneNo); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		log.Error().Err(err).Str("phone_no", req.PhoneNo).Msg("failed to send verification code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(fiber.Map{"message": "verification code sent"})
}

// VerifyOTP handles POST /api/auth/otp/verify. On success the response
// carries a session token for subsequent authenticated requests.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req model.VerifyOTPRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	auth, err := h.service.VerifyCode(c.Context(), req.PhoneNo, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOTPTooManyAttempts):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many verification attempts"})
		case errors.Is(err, service.ErrOTPExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "verification code expired or never requested"})
		case errors.Is(err, service.ErrOTPMismatch):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "incorrect verification code"})
		case errors.Is(err, service.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		log.Error().Err(err).Str("phone_no", req.PhoneNo).Msg("failed to verify code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Str("phone_no", req.PhoneNo).Str("user_id", auth.UserID).Msg("phone number verified")
	return c.JSON(auth)
}
