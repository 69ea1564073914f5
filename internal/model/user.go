package model

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleAdmin    = "ADMIN"
	RoleDealer   = "DEALER"
	RoleRetailer = "RETAILER"
	RoleCustomer = "CUSTOMER"
)

// User represents an account identified by a 10-digit phone number.
// Phone numbers are unique across all users.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	PhoneNo      string     `json:"phone_no"`
	City         string     `json:"city"`
	Role         string     `json:"role"`
	IsVerified   bool       `json:"is_verified"`
	RegisteredBy *uuid.UUID `json:"registered_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateUserRequest is the DTO for POST /api/users.
type CreateUserRequest struct {
	Name         string `json:"name" validate:"required,notblank,max=255"`
	PhoneNo      string `json:"phone_no" validate:"required,phone"`
	City         string `json:"city" validate:"required,notblank,max=255"`
	Role         string `json:"role" validate:"required,oneof=ADMIN DEALER RETAILER CUSTOMER"`
	RegisteredBy string `json:"registered_by,omitempty" validate:"omitempty,uuid"`
}

// UpdateUserRequest is the DTO for PUT /api/users/:id. All fields are
// optional; zero values are left untouched.
type UpdateUserRequest struct {
	Name string `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	City string `json:"city,omitempty" validate:"omitempty,notblank,max=255"`
	Role string `json:"role,omitempty" validate:"omitempty,oneof=ADMIN DEALER RETAILER CUSTOMER"`
}
