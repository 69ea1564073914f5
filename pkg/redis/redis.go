package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewClient creates a Redis client and verifies connectivity with retry.
// Mirrors the backoff behavior of the database pool: 1s, 2s, 4s, ...
func NewClient(ctx context.Context, addr, password string, db, maxRetries int) (*redis.Client, error) {
	attempts := maxRetries
	if attempts < 1 {
		attempts = 1
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			log.Info().Str("addr", addr).Msg("redis connection established")
			return client, nil
		}

		backoff := time.Duration(1<<attempt) * time.Second
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("next_retry_in", backoff).
			Msg("redis connection failed, retrying")

		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", attempts, err)
}
