package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps the suite quick while staying above the enforced minimums.
func fastConfig() Config {
	return Config{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1}
}

func newHasher(t *testing.T) *Argon2 {
	t.Helper()
	h, err := NewArgon2(fastConfig())
	require.NoError(t, err)
	return h
}

func TestHash_PHCFormat(t *testing.T) {
	h := newHasher(t)
	encoded, err := h.Hash("pw123456")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"), encoded)
}

func TestHash_SaltedEveryCall(t *testing.T) {
	h := newHasher(t)
	first, err := h.Hash("pw123456")
	require.NoError(t, err)
	second, err := h.Hash("pw123456")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("pw123456", first))
	assert.True(t, h.Verify("pw123456", second))
}

func TestVerify_WrongPassword(t *testing.T) {
	h := newHasher(t)
	encoded, err := h.Hash("pw123456")
	require.NoError(t, err)
	assert.False(t, h.Verify("pw1234567", encoded))
}

func TestVerify_MalformedHashIsFalse(t *testing.T) {
	h := newHasher(t)
	for _, bad := range []string{
		"",
		"not-a-phc-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	} {
		assert.False(t, h.Verify("pw123456", bad), bad)
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	h := newHasher(t)
	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestNewArgon2_RejectsWeakMemory(t *testing.T) {
	_, err := NewArgon2(Config{MemoryKB: 1024, Time: 1, Parallelism: 1})
	assert.Error(t, err)
}

func TestNeedsUpgrade(t *testing.T) {
	weak := newHasher(t)
	encoded, err := weak.Hash("pw123456")
	require.NoError(t, err)

	strong, err := NewArgon2(Config{MemoryKB: 16 * 1024, Time: 2, Parallelism: 1})
	require.NoError(t, err)

	assert.True(t, strong.NeedsUpgrade(encoded))
	assert.False(t, weak.NeedsUpgrade(encoded))
}
