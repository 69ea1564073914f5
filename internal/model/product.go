package model

import (
	"time"

	"github.com/google/uuid"
)

// Product represents an item that vouchers can be assigned to. Quantity is
// the remaining stock and never goes below zero.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProductRequest is the DTO for POST /api/products.
type CreateProductRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=255"`
	Quantity *int   `json:"quantity" validate:"required,gte=0"`
}

// UpdateProductRequest is the DTO for PUT /api/products/:id.
type UpdateProductRequest struct {
	Name     string `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	Quantity *int   `json:"quantity,omitempty" validate:"omitempty,gte=0"`
}
