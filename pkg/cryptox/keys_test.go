package cryptox

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseKeys(t *testing.T) {
	t.Run("rsa", func(t *testing.T) {
		pemBytes, err := GenerateRSAKey(MinRSABits)
		require.NoError(t, err)

		key, err := ParsePrivateKeyPEM(pemBytes)
		require.NoError(t, err)
		require.IsType(t, &rsa.PrivateKey{}, key)
	})

	t.Run("rsa too small", func(t *testing.T) {
		_, err := GenerateRSAKey(1024)
		require.Error(t, err)
	})

	t.Run("p256", func(t *testing.T) {
		pemBytes, err := GenerateP256Key()
		require.NoError(t, err)

		key, err := ParsePrivateKeyPEM(pemBytes)
		require.NoError(t, err)
		require.IsType(t, &ecdsa.PrivateKey{}, key)
	})

	t.Run("ed25519", func(t *testing.T) {
		pemBytes, err := GenerateEd25519Key()
		require.NoError(t, err)

		key, err := ParsePrivateKeyPEM(pemBytes)
		require.NoError(t, err)
		require.IsType(t, ed25519.PrivateKey{}, key)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParsePrivateKeyPEM([]byte("not pem"))
		require.Error(t, err)
	})
}

func TestSealer(t *testing.T) {
	s, err := NewSealer([]byte("master"))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("private key"))
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "private key")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "private key", string(plain))

	other, err := NewSealer([]byte("other"))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	require.Error(t, err)

	_, err = s.Open([]byte{1, 2})
	require.ErrorIs(t, err, ErrSealedTooShort)

	_, err = NewSealer(nil)
	require.Error(t, err)
}
