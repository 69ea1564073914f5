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

// UserServiceInterface defines the interface for user business logic.
type UserServiceInterface interface {
	Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	ListVouchers(ctx context.Context, id uuid.UUID, search, status string, page, limit int) (*model.VoucherList, error)
}

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service   UserServiceInterface
	validator *validator.Validate
}

// NewUserHandler creates a new UserHandler with the given service and validator.
func NewUserHandler(svc UserServiceInterface, v *validator.Validate) *UserHandler {
	return &UserHandler{service: svc, validator: v}
}

// CreateUser handles POST /api/users.
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req model.CreateUserRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	user, err := h.service.Create(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPhoneExists):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "phone number already registered"})
		case errors.Is(err, service.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "registering user not found"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("phone_no", req.PhoneNo).Msg("failed to create user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetUser handles GET /api/users/:id.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a valid UUID"})
	}

	user, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		log.Error().Err(err).Str("user_id", id.String()).Msg("failed to get user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(user)
}

// UpdateUser handles PUT /api/users/:id.
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a valid UUID"})
	}

	var req model.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	user, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("user_id", id.String()).Msg("failed to update user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(user)
}

// ListUsers handles GET /api/users.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.service.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"users": users})
}

// ListUserVouchers handles GET /api/users/:id/vouchers with pagination,
// batch number prefix search, and status filter.
func (h *UserHandler) ListUserVouchers(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a valid UUID"})
	}

	status := c.Query("status")
	if status != "" && status != model.StatusUnclaimed && status != model.StatusClaimed && status != model.StatusExpired {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: status must be one of UNCLAIMED CLAIMED EXPIRED"})
	}

	list, err := h.service.ListVouchers(c.Context(), id, c.Query("search"), status, c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		log.Error().Err(err).Str("user_id", id.String()).Msg("failed to list user vouchers")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(list)
}
