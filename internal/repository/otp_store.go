package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpCodeKeyPrefix     = "otp:code:"
	otpAttemptsKeyPrefix = "otp:attempts:"
)

// RedisOTPStore keeps pending verification codes in Redis. The TTL on the
// code key is the single source of expiry; the attempt counter shares the
// same lifetime.
type RedisOTPStore struct {
	client *redis.Client
}

// NewRedisOTPStore creates a new RedisOTPStore with the given client.
func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

// SetCode stores the code for a phone number, replacing any pending one and
// resetting the attempt counter.
func (s *RedisOTPStore) SetCode(ctx context.Context, phoneNo, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, otpCodeKeyPrefix+phoneNo, code, ttl).Err(); err != nil {
		return fmt.Errorf("set otp code: %w", err)
	}
	if err := s.client.Del(ctx, otpAttemptsKeyPrefix+phoneNo).Err(); err != nil {
		return fmt.Errorf("reset otp attempts: %w", err)
	}
	return nil
}

// GetCode returns the pending code for a phone number, or "" when none is
// pending or it has expired.
func (s *RedisOTPStore) GetCode(ctx context.Context, phoneNo string) (string, error) {
	code, err := s.client.Get(ctx, otpCodeKeyPrefix+phoneNo).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get otp code: %w", err)
	}
	return code, nil
}

// DeleteCode removes a consumed code and its attempt counter.
func (s *RedisOTPStore) DeleteCode(ctx context.Context, phoneNo string) error {
	if err := s.client.Del(ctx, otpCodeKeyPrefix+phoneNo, otpAttemptsKeyPrefix+phoneNo).Err(); err != nil {
		return fmt.Errorf("delete otp code: %w", err)
	}
	return nil
}

// IncrAttempts bumps and returns the verification attempt counter for a
// phone number. The counter expires together with the code.
func (s *RedisOTPStore) IncrAttempts(ctx context.Context, phoneNo string, ttl time.Duration) (int, error) {
	key := otpAttemptsKeyPrefix + phoneNo
	attempts, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr otp attempts: %w", err)
	}
	if attempts == 1 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("expire otp attempts: %w", err)
		}
	}
	return int(attempts), nil
}
