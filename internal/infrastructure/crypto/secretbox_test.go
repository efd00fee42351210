package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretboxCipher(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	c, err := NewSecretboxCipher(key)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		sealed, err := c.Encrypt("P1234567")
		require.NoError(t, err)
		assert.NotContains(t, sealed, "P1234567")

		plain, err := c.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, "P1234567", plain)
	})

	t.Run("nonce differs per call", func(t *testing.T) {
		a, err := c.Encrypt("same")
		require.NoError(t, err)
		b, err := c.Encrypt("same")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("wrong key fails", func(t *testing.T) {
		sealed, err := c.Encrypt("secret")
		require.NoError(t, err)

		other, err := NewSecretboxCipher(bytes.Repeat([]byte{8}, 32))
		require.NoError(t, err)
		_, err = other.Decrypt(sealed)
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := c.Decrypt("not base64!")
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
		_, err = c.Decrypt("c2hvcnQ=")
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("key length is checked", func(t *testing.T) {
		_, err := NewSecretboxCipher([]byte("short"))
		assert.Error(t, err)
		assert.Len(t, EphemeralKey(), 32)
	})
}
