//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/internal/repository"
	"github.com/vitale-labs/voucher-service/internal/service"
	"github.com/vitale-labs/voucher-service/pkg/smsgateway"
	"github.com/vitale-labs/voucher-service/pkg/token"
)

// The full voucher lifecycle: register a retailer, generate vouchers against
// product stock, claim one, expire it, reactivate it, and claim it again.
func TestVoucherLifecycle(t *testing.T) {
	cleanupTables(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	voucherRepo := repository.NewVoucherRepository(testPool)
	userRepo := repository.NewUserRepository(testPool)
	productRepo := repository.NewProductRepository(testPool)

	users := service.NewUserService(userRepo, voucherRepo)
	vouchers := service.NewVoucherService(testPool, voucherRepo, userRepo, productRepo)

	retailer, err := users.Create(ctx, &model.CreateUserRequest{
		Name:    "Asha Traders",
		PhoneNo: "9876543210",
		City:    "Pune",
		Role:    model.RoleRetailer,
	})
	require.NoError(t, err)

	insertProduct(t, "Vital-E 500ml", 3)

	count := 3
	generated, err := vouchers.BulkGenerate(ctx, &model.BulkGenerateRequest{Count: &count, AssignProducts: true})
	require.NoError(t, err)
	require.Equal(t, 3, generated.Generated)
	for _, v := range generated.Vouchers {
		assert.Equal(t, model.StatusUnclaimed, v.Status)
		assert.NotNil(t, v.ProductID, "all three vouchers should get product stock")
	}

	batchNo := generated.Vouchers[0].BatchNo

	claimed, err := vouchers.Claim(ctx, "9876543210", batchNo)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClaimed, claimed.Status)
	require.NotNil(t, claimed.ClaimedBy)
	assert.Equal(t, retailer.ID, *claimed.ClaimedBy)
	assert.NotNil(t, claimed.ClaimedAt)

	// A second claim of the same voucher fails.
	_, err = vouchers.Claim(ctx, "9876543210", batchNo)
	assert.ErrorIs(t, err, service.ErrAlreadyClaimed)

	// The claim shows up in the retailer's voucher listing.
	list, err := users.ListVouchers(ctx, retailer.ID, "", "", 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, batchNo, list.Vouchers[0].BatchNo)

	// Expire, then reactivate. Reactivation clears the claim fields.
	expired, err := vouchers.UpdateStatus(ctx, claimed.ID, model.StatusExpired)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, expired.Status)

	_, err = vouchers.Claim(ctx, "9876543210", batchNo)
	assert.ErrorIs(t, err, service.ErrVoucherExpired)

	reactivated, err := vouchers.UpdateStatus(ctx, claimed.ID, model.StatusUnclaimed)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnclaimed, reactivated.Status)
	assert.Nil(t, reactivated.ClaimedBy)
	assert.Nil(t, reactivated.ClaimedAt)

	// A reactivated voucher is claimable again.
	reclaimed, err := vouchers.Claim(ctx, "9876543210", batchNo)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClaimed, reclaimed.Status)
}

func TestClaim_RoleAndLookupFailures(t *testing.T) {
	cleanupTables(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	insertUser(t, "9000000011", model.RoleCustomer)
	insertVoucher(t, "RSV-40000001", model.StatusUnclaimed)

	svc := newVoucherService()

	_, err := svc.Claim(ctx, "9000000011", "RSV-40000001")
	assert.ErrorIs(t, err, service.ErrNotRetailer, "customers cannot claim")

	_, err = svc.Claim(ctx, "9999999999", "RSV-40000001")
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	insertUser(t, "9000000012", model.RoleRetailer)
	_, err = svc.Claim(ctx, "9000000012", "RSV-49999999")
	assert.ErrorIs(t, err, service.ErrVoucherNotFound)

	assert.Equal(t, model.StatusUnclaimed, voucherStatus(t, insertVoucher(t, "RSV-40000002", model.StatusUnclaimed)))
}

func TestCreateVoucher_DuplicateBatchNo(t *testing.T) {
	cleanupTables(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := newVoucherService()

	_, err := svc.Create(ctx, &model.CreateVoucherRequest{BatchNo: "RSV-50000001"})
	require.NoError(t, err)

	// The UNIQUE constraint on batch_no rejects the second insert.
	_, err = svc.Create(ctx, &model.CreateVoucherRequest{BatchNo: "RSV-50000001"})
	assert.ErrorIs(t, err, service.ErrBatchNoExists)
}

// OTP request and verification against real Redis, ending with a session
// token whose claims match the verified user.
func TestOTPFlow(t *testing.T) {
	cleanupTables(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID := insertUser(t, "9000000021", model.RoleRetailer)
	_, err := testPool.Exec(ctx, `UPDATE users SET is_verified = FALSE WHERE id = $1`, userID)
	require.NoError(t, err)

	gateway := smsgateway.NewMockGateway()
	tokens := token.NewService("integration-secret", time.Hour)
	store := repository.NewRedisOTPStore(testRedis)
	userRepo := repository.NewUserRepository(testPool)

	otp := service.NewOTPService(store, gateway, tokens, userRepo, 5*time.Minute, 5)

	require.NoError(t, otp.RequestCode(ctx, "9000000021"))
	require.Len(t, gateway.Sent, 1)

	code, err := store.GetCode(ctx, "9000000021")
	require.NoError(t, err)
	require.Len(t, code, 6)
	assert.Contains(t, gateway.Sent[0].Message, code)

	// A wrong code burns an attempt but does not invalidate the right one.
	_, err = otp.VerifyCode(ctx, "9000000021", "000000")
	if code == "000000" {
		t.Skip("generated code collided with the test's wrong guess")
	}
	assert.ErrorIs(t, err, service.ErrOTPMismatch)

	auth, err := otp.VerifyCode(ctx, "9000000021", code)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), auth.UserID)
	assert.Equal(t, model.RoleRetailer, auth.Role)

	claims, err := tokens.Verify(auth.Token)
	require.NoError(t, err)
	assert.Equal(t, "9000000021", claims.PhoneNo)
	assert.Equal(t, model.RoleRetailer, claims.Role)

	// The code is single-use.
	_, err = otp.VerifyCode(ctx, "9000000021", code)
	assert.ErrorIs(t, err, service.ErrOTPExpired)

	// The user is now verified.
	user, err := userRepo.GetByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.IsVerified)
}
