package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/internal/service"
)

// VoucherServiceInterface defines the interface for voucher business logic.
type VoucherServiceInterface interface {
	Create(ctx context.Context, req *model.CreateVoucherRequest) (*model.Voucher, error)
	List(ctx context.Context, status string, page, limit int) (*model.VoucherList, error)
	BulkGenerate(ctx context.Context, req *model.BulkGenerateRequest) (*model.BulkGenerateResponse, error)
	UpdateStatus(ctx context.Context, voucherID uuid.UUID, newStatus string) (*model.Voucher, error)
}

// VoucherHandler handles HTTP requests for voucher administration.
type VoucherHandler struct {
	service   VoucherServiceInterface
	validator *validator.Validate
}

// NewVoucherHandler creates a new VoucherHandler with the given service and validator.
func NewVoucherHandler(svc VoucherServiceInterface, v *validator.Validate) *VoucherHandler {
	return &VoucherHandler{service: svc, validator: v}
}

// CreateVoucher handles POST /api/vouchers.
func (h *VoucherHandler) CreateVoucher(c *fiber.Ctx) error {
	var req model.CreateVoucherRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	voucher, err := h.service.Create(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchNoExists):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "batch number already exists"})
		case errors.Is(err, service.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("batch_no", req.BatchNo).Msg("failed to create voucher")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(voucher)
}

// ListVouchers handles GET /api/vouchers with optional status filter and
// pagination.
func (h *VoucherHandler) ListVouchers(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && status != model.StatusUnclaimed && status != model.StatusClaimed && status != model.StatusExpired {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: status must be one of UNCLAIMED CLAIMED EXPIRED"})
	}

	list, err := h.service.List(c.Context(), status, c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		log.Error().Err(err).Msg("failed to list vouchers")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(list)
}

// BulkGenerate handles POST /api/vouchers/bulk-generation.
func (h *VoucherHandler) BulkGenerate(c *fiber.Ctx) error {
	var req model.BulkGenerateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	resp, err := h.service.BulkGenerate(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCount):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: count must be between 1 and 1000"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Msg("failed to bulk generate vouchers")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Int("requested", resp.Requested).
		Int("generated", resp.Generated).
		Msg("bulk voucher generation completed")

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// UpdateStatus handles POST /api/vouchers/update-status. Transitions outside
// the voucher lifecycle are rejected with 409.
func (h *VoucherHandler) UpdateStatus(c *fiber.Ctx) error {
	var req model.UpdateStatusRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	voucherID, err := uuid.Parse(req.VoucherID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: voucher_id must be a valid UUID"})
	}

	voucher, err := h.service.UpdateStatus(c.Context(), voucherID, req.NewStatus)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVoucherNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "voucher not found"})
		case errors.Is(err, service.ErrInvalidTransition):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "invalid status transition"})
		}
		log.Error().Err(err).Str("voucher_id", req.VoucherID).Msg("failed to update voucher status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(voucher)
}
