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

// ProductServiceInterface defines the interface for product business logic.
type ProductServiceInterface interface {
	Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateProductRequest) (*model.Product, error)
	List(ctx context.Context) ([]*model.Product, error)
}

// ProductHandler handles HTTP requests for product management.
type ProductHandler struct {
	service   ProductServiceInterface
	validator *validator.Validate
}

// NewProductHandler creates a new ProductHandler with the given service and validator.
func NewProductHandler(svc ProductServiceInterface, v *validator.Validate) *ProductHandler {
	return &ProductHandler{service: svc, validator: v}
}

// CreateProduct handles POST /api/products.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req model.CreateProductRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	product, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("product_name", req.Name).Msg("failed to create product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}

// UpdateProduct handles PUT /api/products/:id.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a valid UUID"})
	}

	var req model.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	product, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("product_id", id.String()).Msg("failed to update product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(product)
}

// ListProducts handles GET /api/products.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"products": products})
}
