package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/go-auth-otp/internal/domain"
)

const (
	keyPrefix  = "otp:"
	codeFloor  = 100000
	codeSpread = 900000 // codes are drawn from [100000, 999999]

	DefaultTTL = 180 * time.Second
)

// Store is the slice of the ephemeral key-value store the manager needs.
type Store interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// Manager issues and checks single-use numeric challenges keyed by email.
// At most one challenge is live per identity: Generate overwrites.
type Manager struct {
	store  Store
	ttl    time.Duration
	random io.Reader
}

func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, random: rand.Reader}
}

// TTL is how long a freshly generated code stays verifiable.
func (m *Manager) TTL() time.Duration { return m.ttl }

func key(identity string) string { return keyPrefix + identity }

func (m *Manager) Generate(ctx context.Context, identity string) (string, error) {
	n, err := rand.Int(m.random, big.NewInt(codeSpread))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w: %w", domain.ErrStorage, err)
	}
	code := strconv.FormatInt(n.Int64()+codeFloor, 10)
	if err := m.store.SetWithTTL(ctx, key(identity), code, m.ttl); err != nil {
		return "", fmt.Errorf("save otp: %w", err)
	}
	slog.Debug("otp stored", "email", identity, "ttl_seconds", int(m.ttl.Seconds()))
	return code, nil
}

// Verify compares candidate to the live code by exact string equality. A
// match consumes the code; a mismatch leaves it in place.
func (m *Manager) Verify(ctx context.Context, identity, candidate string) (bool, error) {
	stored, ok, err := m.store.Get(ctx, key(identity))
	if err != nil {
		return false, fmt.Errorf("read otp: %w", err)
	}
	if !ok || stored != candidate {
		return false, nil
	}
	if _, err := m.store.Delete(ctx, key(identity)); err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	return true, nil
}

// Invalidate drops the live code, reporting whether one existed.
func (m *Manager) Invalidate(ctx context.Context, identity string) (bool, error) {
	deleted, err := m.store.Delete(ctx, key(identity))
	if err != nil {
		return false, fmt.Errorf("delete otp: %w", err)
	}
	if deleted {
		slog.Debug("otp deleted", "email", identity)
	}
	return deleted, nil
}
