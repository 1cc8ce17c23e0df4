// Package security holds the cryptographic building blocks of the auth
// service: the TOTP secret vault, the backup-code hasher, random token
// generation, and the JWT manager.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// SecretVault encrypts and decrypts TOTP secrets with a process-wide key.
type SecretVault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(envelope string) (string, error)
}

// aesGCMVault implements SecretVault with AES-256-GCM. The envelope layout is
// base64(nonce || ciphertext || tag).
type aesGCMVault struct {
	aead cipher.AEAD
}

// NewAESGCMVault builds a vault from a hex-encoded 32-byte key. It fails fast
// on a missing or malformed key so the service never starts with encryption
// silently disabled.
func NewAESGCMVault(keyHex string) (SecretVault, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("invalid key length: must be 32 bytes for AES-256")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return &aesGCMVault{aead: aead}, nil
}

func (v *aesGCMVault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt fails closed: a tampered envelope or wrong key returns an error,
// never corrupted plaintext.
func (v *aesGCMVault) Decrypt(envelope string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 envelope: %w", err)
	}
	nonceSize := v.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", errors.New("envelope too short to contain nonce")
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

var _ SecretVault = (*aesGCMVault)(nil)
