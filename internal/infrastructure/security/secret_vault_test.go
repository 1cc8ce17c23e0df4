package security_test

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daon-network/auth-service/internal/infrastructure/security"
)

func testHexKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return hex.EncodeToString(key)
}

func TestNewAESGCMVault_KeyValidation(t *testing.T) {
	_, err := security.NewAESGCMVault("")
	assert.Error(t, err, "empty key must be rejected")

	_, err = security.NewAESGCMVault("not-hex")
	assert.Error(t, err)

	_, err = security.NewAESGCMVault(hex.EncodeToString([]byte("too short")))
	assert.Error(t, err)

	_, err = security.NewAESGCMVault(testHexKey(t))
	assert.NoError(t, err)
}

func TestVault_RoundTrip(t *testing.T) {
	vault, err := security.NewAESGCMVault(testHexKey(t))
	require.NoError(t, err)

	for _, secret := range []string{"JBSWY3DPEHPK3PXP", "", "unicode ✓ secret"} {
		envelope, err := vault.Encrypt(secret)
		require.NoError(t, err)

		got, err := vault.Decrypt(envelope)
		require.NoError(t, err)
		assert.Equal(t, secret, got)
	}
}

func TestVault_NonceUniqueness(t *testing.T) {
	vault, err := security.NewAESGCMVault(testHexKey(t))
	require.NoError(t, err)

	a, err := vault.Encrypt("same plaintext")
	require.NoError(t, err)
	b, err := vault.Encrypt("same plaintext")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "random nonce must yield distinct envelopes")
}

func TestVault_TamperFailsClosed(t *testing.T) {
	vault, err := security.NewAESGCMVault(testHexKey(t))
	require.NoError(t, err)

	envelope, err := vault.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(envelope)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	got, err := vault.Decrypt(tampered)
	require.Error(t, err, "tampered ciphertext must not decrypt")
	assert.Empty(t, got)
}

func TestVault_WrongKeyFailsClosed(t *testing.T) {
	vaultA, err := security.NewAESGCMVault(testHexKey(t))
	require.NoError(t, err)
	vaultB, err := security.NewAESGCMVault(testHexKey(t))
	require.NoError(t, err)

	envelope, err := vaultA.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	got, err := vaultB.Decrypt(envelope)
	require.Error(t, err)
	assert.Empty(t, got, "wrong key must never return corrupted plaintext")
}

func TestVault_TruncatedEnvelope(t *testing.T) {
	vault, err := security.NewAESGCMVault(testHexKey(t))
	require.NoError(t, err)

	_, err = vault.Decrypt(base64.StdEncoding.EncodeToString([]byte("abc")))
	assert.Error(t, err)

	_, err = vault.Decrypt("%%%not-base64%%%")
	assert.Error(t, err)
}
