package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := DeriveKey("a secret that is not 32 bytes")
	require.Len(t, key, 32)

	sealed, err := Encrypt([]byte("access-token"), key)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "access-token")

	plain, err := Decrypt(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "access-token", plain)
}

func TestDecryptWrongKey(t *testing.T) {
	sealed, err := Encrypt([]byte("access-token"), DeriveKey("one"))
	require.NoError(t, err)

	_, err = Decrypt(sealed, DeriveKey("two"))
	assert.Error(t, err)
}

func TestDecryptTooShort(t *testing.T) {
	_, err := Decrypt("AAAA", DeriveKey("k"))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestDeriveKeyKeepsValidLengths(t *testing.T) {
	assert.Equal(t, []byte("0123456789abcdef"), DeriveKey("0123456789abcdef"))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "owner-1", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.UserID)

	_, err = ValidateToken("other", token)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateToken("secret", "owner-1", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken("secret", token)
	assert.Error(t, err)
}
