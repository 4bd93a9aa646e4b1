package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Store is the ephemeral key-value store backing OTP challenges and staged
// registrations. Expiry is delegated entirely to Redis TTLs.
type Store struct {
	client redis.UniversalClient
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// SetWithTTL writes value under key, replacing any previous value and TTL.
func (s *Store) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("set %s: non-positive ttl: %w", key, domain.ErrStorage)
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w: %w", key, domain.ErrStorage, err)
	}
	return nil
}

// Get returns the value and true, or "" and false when the key is absent or expired.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w: %w", key, domain.ErrStorage, err)
	}
	return v, true, nil
}

// Delete removes key and reports whether anything was there.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w: %w", key, domain.ErrStorage, err)
	}
	return n > 0, nil
}
