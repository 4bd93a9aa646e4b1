package otp

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-auth-otp/internal/domain"
	redisinfra "github.com/go-auth-otp/internal/infrastructure/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewManager(redisinfra.NewStore(client), DefaultTTL), mr
}

func TestGenerate_SixDigitsStoredWithTTL(t *testing.T) {
	m, mr := newTestManager(t)

	code, err := m.Generate(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.GreaterOrEqual(t, code, "100000")
	assert.LessOrEqual(t, code, "999999")

	stored, err := mr.Get("otp:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, code, stored)
	assert.Equal(t, 180*time.Second, mr.TTL("otp:a@x.com"))
}

func TestGenerate_RangeBounds(t *testing.T) {
	m, _ := newTestManager(t)

	// rand.Int over [0, 900000) reading all-zero bytes yields 0.
	m.random = bytes.NewReader(make([]byte, 64))
	code, err := m.Generate(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "100000", code)
}

func TestVerify_SingleUse(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	code, err := m.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	ok, err := m.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_MismatchKeepsChallenge(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	code, err := m.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	wrong := "000000"
	ok, err := m.Verify(ctx, "a@x.com", wrong)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_NoNormalisation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	code, err := m.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	ok, err := m.Verify(ctx, "a@x.com", " "+code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_ExpiresAfterTTL(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	code, err := m.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	mr.FastForward(181 * time.Second)

	ok, err := m.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerate_OverwritesPrevious(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	_, err := m.Generate(ctx, "a@x.com")
	require.NoError(t, err)
	mr.FastForward(100 * time.Second)

	second, err := m.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	stored, err := mr.Get("otp:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, second, stored)
	assert.Equal(t, 180*time.Second, mr.TTL("otp:a@x.com"))
}

func TestInvalidate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	code, err := m.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	deleted, err := m.Invalidate(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = m.Invalidate(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, deleted)

	ok, err := m.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}
func (m *mockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}
func (m *mockStore) Delete(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func TestGenerate_StoreFailureIsStorageError(t *testing.T) {
	s := &mockStore{}
	s.On("SetWithTTL", mock.Anything, "otp:a@x.com", mock.Anything, DefaultTTL).
		Return(wrapStorage(errors.New("conn reset")))

	_, err := NewManager(s, 0).Generate(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
	s.AssertExpectations(t)
}

func TestVerify_ReadFailureIsStorageError(t *testing.T) {
	s := &mockStore{}
	s.On("Get", mock.Anything, "otp:a@x.com").Return("", false, wrapStorage(errors.New("timeout")))

	ok, err := NewManager(s, 0).Verify(context.Background(), "a@x.com", "123456")
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

func TestInvalidate_DeleteFailureIsStorageError(t *testing.T) {
	s := &mockStore{}
	s.On("Delete", mock.Anything, "otp:a@x.com").Return(false, wrapStorage(errors.New("conn reset")))

	_, err := NewManager(s, 0).Invalidate(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

func wrapStorage(cause error) error {
	return errors.Join(domain.ErrStorage, cause)
}
