package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitale-labs/voucher-service/internal/middleware"
	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/internal/service"
	"github.com/vitale-labs/voucher-service/internal/validator"
	"github.com/vitale-labs/voucher-service/pkg/token"
)

// mockClaimService is a mock implementation of ClaimServiceInterface.
type mockClaimService struct {
	claimFn func(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error)
}

func (m *mockClaimService) Claim(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, phoneNo, batchNo)
	}
	return &model.Voucher{Status: model.StatusClaimed}, nil
}

// stubVerifier returns fixed claims for any token.
type stubVerifier struct {
	claims *token.Claims
	err    error
}

func (s *stubVerifier) Verify(string) (*token.Claims, error) {
	return s.claims, s.err
}

func setupClaimTestApp(mockSvc *mockClaimService, verifier middleware.TokenVerifier) *fiber.App {
	app := fiber.New()
	h := NewClaimHandler(mockSvc, validator.New())
	app.Post("/api/vouchers/claim", middleware.Authenticate(verifier), h.ClaimVoucher)
	return app
}

func retailerVerifier(phoneNo string) *stubVerifier {
	return &stubVerifier{claims: &token.Claims{PhoneNo: phoneNo, Role: model.RoleRetailer}}
}

func claimRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/vouchers/claim", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

func TestClaimVoucher_Success(t *testing.T) {
	mockSvc := &mockClaimService{
		claimFn: func(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
			assert.Equal(t, "9876543210", phoneNo)
			assert.Equal(t, "RSV-12345678", batchNo)
			return &model.Voucher{BatchNo: batchNo, Status: model.StatusClaimed}, nil
		},
	}
	app := setupClaimTestApp(mockSvc, retailerVerifier("9876543210"))

	resp, err := app.Test(claimRequest(`{"phone_no": "9876543210", "batch_no": "RSV-12345678"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "Expected 200 OK")

	var result model.Voucher
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, model.StatusClaimed, result.Status)
	assert.Equal(t, "RSV-12345678", result.BatchNo)
}

func TestClaimVoucher_MissingToken(t *testing.T) {
	app := setupClaimTestApp(&mockClaimService{}, retailerVerifier("9876543210"))

	req := httptest.NewRequest(http.MethodPost, "/api/vouchers/claim",
		bytes.NewBufferString(`{"phone_no": "9876543210", "batch_no": "RSV-12345678"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "Expected 401 Unauthorized")
}

func TestClaimVoucher_PhoneMismatch(t *testing.T) {
	// Token was verified for a different phone number than the claim's.
	app := setupClaimTestApp(&mockClaimService{}, retailerVerifier("1111111111"))

	resp, err := app.Test(claimRequest(`{"phone_no": "9876543210", "batch_no": "RSV-12345678"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "Expected 403 Forbidden")

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "phone number does not match verified session", result["error"])
}

func TestClaimVoucher_InvalidPhoneFormat(t *testing.T) {
	mockSvc := &mockClaimService{
		claimFn: func(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
			t.Fatal("service should not be called for malformed input")
			return nil, nil
		},
	}
	app := setupClaimTestApp(mockSvc, retailerVerifier("987654321"))

	resp, err := app.Test(claimRequest(`{"phone_no": "987654321", "batch_no": "RSV-12345678"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "Expected 400 Bad Request")

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "invalid request: phone_no must be a 10-digit phone number", result["error"])
}

func TestClaimVoucher_InvalidBatchNoFormat(t *testing.T) {
	mockSvc := &mockClaimService{
		claimFn: func(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
			t.Fatal("service should not be called for malformed input")
			return nil, nil
		},
	}
	app := setupClaimTestApp(mockSvc, retailerVerifier("9876543210"))

	resp, err := app.Test(claimRequest(`{"phone_no": "9876543210", "batch_no": "ABC-123"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "Expected 400 Bad Request")

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "invalid request: batch_no must match RSV-XXXXXXXX", result["error"])
}

func TestClaimVoucher_UserNotFound(t *testing.T) {
	mockSvc := &mockClaimService{
		claimFn: func(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
			return nil, service.ErrUserNotFound
		},
	}
	app := setupClaimTestApp(mockSvc, retailerVerifier("9876543210"))

	resp, err := app.Test(claimRequest(`{"phone_no": "9876543210", "batch_no": "RSV-12345678"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, "Expected 404 Not Found")

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "user not found", result["error"])
}

func TestClaimVoucher_NotRetailer(t *testing.T) {
	mockSvc := &mockClaimService{
		claimFn: func(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
			return nil, service.ErrNotRetailer
		},
	}
	app := setupClaimTestApp(mockSvc, retailerVerifier("9876543210"))

	resp, err := app.Test(claimRequest(`{"phone_no": "9876543210", "batch_no": "RSV-12345678"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "Expected 403 Forbidden")

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "only retailers can claim vouchers", result["error"])
}

func TestClaimVoucher_VoucherNotFound(t *testing.T) {
	mockSvc := &mockClaimService{
		claimFn: func(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
			return nil, service.ErrVoucherNotFound
		},
	}
	app := setupClaimTestApp(mockSvc, retailerVerifier("9876543210"))

	resp, err := app.Test(claimRequest(`{"phone_no": "9876543210", "batch_no": "RSV-99999999"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, "Expected 404 Not Found")

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "voucher not found", result["error"])
}

func TestClaimVoucher_AlreadyClaimed(t *testing.T) {
	mockSvc := &mockClaimService{
		claimFn: func(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
			return nil, service.ErrAlreadyClaimed
		},
	}
	app := setupClaimTestApp(mockSvc, retailerVerifier("9876543210"))

	resp, err := app.Test(claimRequest(`{"phone_no": "9876543210", "batch_no": "RSV-12345678"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode, "Expected 409 Conflict")

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "voucher already claimed", result["error"])
}

func TestClaimVoucher_Expired(t *testing.T) {
	mockSvc := &mockClaimService{
		claimFn: func(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
			return nil, service.ErrVoucherExpired
		},
	}
	app := setupClaimTestApp(mockSvc, retailerVerifier("9876543210"))

	resp, err := app.Test(claimRequest(`{"phone_no": "9876543210", "batch_no": "RSV-12345678"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode, "Expected 409 Conflict")
}

func TestClaimVoucher_InternalError(t *testing.T) {
	mockSvc := &mockClaimService{
		claimFn: func(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
			return nil, errors.New("database connection failed")
		},
	}
	app := setupClaimTestApp(mockSvc, retailerVerifier("9876543210"))

	resp, err := app.Test(claimRequest(`{"phone_no": "9876543210", "batch_no": "RSV-12345678"}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode, "Expected 500 Internal Server Error")

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "internal server error", result["error"], "internal details must not leak")
}
