package registration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-auth-otp/internal/domain"
)

const (
	keyPrefix  = "register:"
	DefaultTTL = 300 * time.Second
)

// Store is the slice of the ephemeral key-value store staging needs.
type Store interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// Staging holds registrations that have not yet proven email ownership.
// Entries expire on their own after the staging TTL.
type Staging struct {
	store Store
	ttl   time.Duration
}

func NewStaging(store Store, ttl time.Duration) *Staging {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Staging{store: store, ttl: ttl}
}

func key(identity string) string { return keyPrefix + identity }

// Stage records a pending registration, replacing any earlier one and
// restarting its TTL.
func (s *Staging) Stage(ctx context.Context, identity, name, passwordHash string) error {
	raw, err := json.Marshal(domain.PendingRegistration{
		Email:        identity,
		Name:         name,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return fmt.Errorf("encode pending registration: %w: %w", domain.ErrStorage, err)
	}
	if err := s.store.SetWithTTL(ctx, key(identity), string(raw), s.ttl); err != nil {
		return fmt.Errorf("stage registration: %w", err)
	}
	return nil
}

// Fetch returns the pending registration, if one is still live.
func (s *Staging) Fetch(ctx context.Context, identity string) (*domain.PendingRegistration, bool, error) {
	raw, ok, err := s.store.Get(ctx, key(identity))
	if err != nil {
		return nil, false, fmt.Errorf("fetch registration: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var p domain.PendingRegistration
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false, fmt.Errorf("decode pending registration: %w: %w", domain.ErrStorage, err)
	}
	return &p, true, nil
}

// Promote removes the staged entry once the account exists for real.
// Removing an entry that is already gone is not an error.
func (s *Staging) Promote(ctx context.Context, identity string) error {
	if _, err := s.store.Delete(ctx, key(identity)); err != nil {
		return fmt.Errorf("promote registration: %w", err)
	}
	return nil
}
