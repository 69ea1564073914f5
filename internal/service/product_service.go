package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vitale-labs/voucher-service/internal/model"
)

// ProductService provides business logic for product management.
type ProductService struct {
	productRepo ProductRepositoryInterface
}

// NewProductService creates a new ProductService with the given repository.
func NewProductService(productRepo ProductRepositoryInterface) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// Create adds a new product with an initial stock quantity.
func (s *ProductService) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if req == nil || req.Quantity == nil {
		return nil, ErrInvalidRequest
	}

	product := &model.Product{
		ID:        uuid.New(),
		Name:      req.Name,
		Quantity:  *req.Quantity,
		CreatedAt: time.Now(),
	}
	product.UpdatedAt = product.CreatedAt

	if err := s.productRepo.Insert(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Get retrieves a product by ID. Returns ErrProductNotFound if absent.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Update applies the non-empty fields of the request to the product.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateProductRequest) (*model.Product, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Quantity != nil {
		product.Quantity = *req.Quantity
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// List returns all products ordered by name.
func (s *ProductService) List(ctx context.Context) ([]*model.Product, error) {
	return s.productRepo.List(ctx)
}
