package model

// RequestOTPRequest is the DTO for POST /api/auth/otp/request.
type RequestOTPRequest struct {
	PhoneNo string `json:"phone_no" validate:"required,phone"`
}

// VerifyOTPRequest is the DTO for POST /api/auth/otp/verify.
type VerifyOTPRequest struct {
	PhoneNo string `json:"phone_no" validate:"required,phone"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}

// AuthResponse is returned after a successful OTP verification.
type AuthResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}
