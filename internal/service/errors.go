package service

import "errors"

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrPhoneExists is returned when attempting to register a phone number that is already taken
	ErrPhoneExists = errors.New("phone number already registered")

	// ErrNotRetailer is returned when a non-retailer user attempts to claim a voucher
	ErrNotRetailer = errors.New("user is not a retailer")

	// ErrVoucherNotFound is returned when a voucher cannot be found
	ErrVoucherNotFound = errors.New("voucher not found")

	// ErrBatchNoExists is returned when attempting to create a voucher with a batch number that already exists
	ErrBatchNoExists = errors.New("batch number already exists")

	// ErrAlreadyClaimed is returned when the voucher has already been claimed
	ErrAlreadyClaimed = errors.New("voucher already claimed")

	// ErrVoucherExpired is returned when attempting to claim an expired voucher
	ErrVoucherExpired = errors.New("voucher expired")

	// ErrInvalidTransition is returned when a status change violates the voucher lifecycle
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidCount is returned when a bulk generation count is outside [1, 1000]
	ErrInvalidCount = errors.New("count must be between 1 and 1000")

	// ErrProductNotFound is returned when a product cannot be found
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrOTPMismatch is returned when the submitted OTP code does not match
	ErrOTPMismatch = errors.New("incorrect verification code")

	// ErrOTPExpired is returned when no pending OTP exists for the phone number
	ErrOTPExpired = errors.New("verification code expired or never requested")

	// ErrOTPTooManyAttempts is returned when the verification attempt limit is exceeded
	ErrOTPTooManyAttempts = errors.New("too many verification attempts")
)
