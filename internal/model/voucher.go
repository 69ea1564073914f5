package model

import (
	"time"

	"github.com/google/uuid"
)

// Voucher status values. A voucher moves UNCLAIMED -> CLAIMED -> EXPIRED,
// and EXPIRED -> UNCLAIMED when an admin reactivates it.
const (
	StatusUnclaimed = "UNCLAIMED"
	StatusClaimed   = "CLAIMED"
	StatusExpired   = "EXPIRED"
)

// Voucher represents a redeemable voucher tied to a batch number and
// optionally a product.
type Voucher struct {
	ID          uuid.UUID  `json:"id"`
	BatchNo     string     `json:"batch_no"`
	Status      string     `json:"status"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ProductName *string    `json:"product_name,omitempty"`
	Barcode     *string    `json:"barcode,omitempty"`
	ClaimedBy   *uuid.UUID `json:"claimed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// CreateVoucherRequest is the DTO for creating a single voucher.
type CreateVoucherRequest struct {
	BatchNo   string `json:"batch_no" validate:"required,batchno"`
	ProductID string `json:"product_id,omitempty" validate:"omitempty,uuid"`
	Barcode   string `json:"barcode,omitempty" validate:"omitempty,max=64"`
}

// BulkGenerateRequest is the DTO for POST /api/vouchers/bulk-generation.
// Count must be between 1 and 1000 inclusive.
type BulkGenerateRequest struct {
	Count          *int `json:"count" validate:"required,gte=1,lte=1000"`
	AssignProducts bool `json:"assign_products"`
}

// BulkGenerateResponse reports how far generation got. Generated may be
// lower than Requested when product stock ran out first.
type BulkGenerateResponse struct {
	Requested int        `json:"requested"`
	Generated int        `json:"generated"`
	Vouchers  []*Voucher `json:"vouchers"`
}

// ClaimVoucherRequest is the DTO for POST /api/vouchers/claim.
type ClaimVoucherRequest struct {
	PhoneNo string `json:"phone_no" validate:"required,phone"`
	BatchNo string `json:"batch_no" validate:"required,batchno"`
}

// UpdateStatusRequest is the DTO for POST /api/vouchers/update-status.
type UpdateStatusRequest struct {
	VoucherID string `json:"voucher_id" validate:"required,uuid"`
	NewStatus string `json:"new_status" validate:"required,oneof=UNCLAIMED CLAIMED EXPIRED"`
}

// VoucherList is a paginated list of vouchers.
type VoucherList struct {
	Vouchers []*Voucher `json:"vouchers"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}
