package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/pkg/smsgateway"
)

// OTPStore persists pending verification codes with a TTL.
type OTPStore interface {
	SetCode(ctx context.Context, phoneNo, code string, ttl time.Duration) error
	GetCode(ctx context.Context, phoneNo string) (string, error)
	DeleteCode(ctx context.Context, phoneNo string) error
	IncrAttempts(ctx context.Context, phoneNo string, ttl time.Duration) (int, error)
}

// TokenIssuer mints session tokens after a successful verification.
type TokenIssuer interface {
	Generate(userID, phoneNo, role string) (string, time.Time, error)
}

// OTPService issues and verifies one-time passwords sent over SMS, and mints
// session tokens for verified users.
type OTPService struct {
	store       OTPStore
	gateway     smsgateway.Gateway
	tokens      TokenIssuer
	userRepo    UserRepositoryInterface
	ttl         time.Duration
	maxAttempts int
}

// NewOTPService creates a new OTPService.
func NewOTPService(store OTPStore, gateway smsgateway.Gateway, tokens TokenIssuer, userRepo UserRepositoryInterface, ttl time.Duration, maxAttempts int) *OTPService {
	return &OTPService{
		store:       store,
		gateway:     gateway,
		tokens:      tokens,
		userRepo:    userRepo,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

// newCode generates a 6-digit verification code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestCode generates a verification code for the user with the given
// phone number and delivers it over SMS. A repeated request replaces the
// pending code and resets the attempt counter.
// Returns ErrUserNotFound when no user has the phone number.
func (s *OTPService) RequestCode(ctx context.Context, phoneNo string) error {
	user, err := s.userRepo.GetByPhone(ctx, phoneNo)
	if err != nil {
		return fmt.Errorf("get user by phone: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	code, err := newCode()
	if err != nil {
		return err
	}

	if err := s.store.SetCode(ctx, phoneNo, code, s.ttl); err != nil {
		return fmt.Errorf("store otp code: %w", err)
	}

	message := fmt.Sprintf("Your Vital-E verification code is %s. It expires in %d minutes.",
		code, int(s.ttl.Minutes()))
	if err := s.gateway.SendSMS(ctx, phoneNo, message); err != nil {
		return fmt.Errorf("send otp sms: %w", err)
	}

	log.Info().Str("phone_no", phoneNo).Msg("verification code sent")
	return nil
}

// VerifyCode checks the submitted code against the pending one. On success
// the code is consumed, the user is marked verified, and a session token is
// issued.
// Returns:
//   - ErrOTPTooManyAttempts after maxAttempts failed submissions
//   - ErrOTPExpired when no code is pending for the phone number
//   - ErrOTPMismatch when the code is wrong
func (s *OTPService) VerifyCode(ctx context.Context, phoneNo, code string) (*model.AuthResponse, error) {
	attempts, err := s.store.IncrAttempts(ctx, phoneNo, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("count otp attempts: %w", err)
	}
	if attempts > s.maxAttempts {
		return nil, ErrOTPTooManyAttempts
	}

	stored, err := s.store.GetCode(ctx, phoneNo)
	if err != nil {
		return nil, fmt.Errorf("get otp code: %w", err)
	}
	if stored == "" {
		return nil, ErrOTPExpired
	}
	if stored != code {
		return nil, ErrOTPMismatch
	}

	if err := s.store.DeleteCode(ctx, phoneNo); err != nil {
		return nil, fmt.Errorf("consume otp code: %w", err)
	}

	user, err := s.userRepo.GetByPhone(ctx, phoneNo)
	if err != nil {
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if !user.IsVerified {
		if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("mark verified: %w", err)
		}
	}

	token, expiresAt, err := s.tokens.Generate(user.ID.String(), user.PhoneNo, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &model.AuthResponse{
		Token:     token,
		UserID:    user.ID.String(),
		Role:      user.Role,
		ExpiresAt: expiresAt.Unix(),
	}, nil
}
