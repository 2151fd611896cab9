package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRing_SealOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "secret.key")

	ring, err := LoadOrCreateKeyRing(path)
	require.NoError(t, err)

	sealed, err := ring.Seal([]byte("inventory snapshot"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "inventory snapshot")

	// Reloading the same file yields the same key
	again, err := LoadOrCreateKeyRing(path)
	require.NoError(t, err)

	plain, err := again.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "inventory snapshot", string(plain))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(KeySize), info.Size())
}

func TestKeyRing_OpenRejectsTampering(t *testing.T) {
	ring, err := NewKeyRing(make([]byte, KeySize))
	require.NoError(t, err)

	sealed, err := ring.Seal([]byte("data"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = ring.Open(sealed)
	assert.ErrorIs(t, err, ErrMalformedCiphertext)

	_, err = ring.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestNewKeyRing_WrongSize(t *testing.T) {
	_, err := NewKeyRing([]byte("too short"))
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("coach-pass")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "coach-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))

	_, err = HashPassword("")
	assert.Error(t, err)
}
