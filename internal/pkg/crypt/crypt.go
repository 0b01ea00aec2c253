package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/LinkTally/LinkTally/internal/pkg/env"
)

// Token encryption for payment-provider credentials. Ciphertexts use
// AES-256-GCM and are stored as "iv:authTag:ciphertext" in hex, so rows
// written by earlier deployments of the platform remain readable.

const ivLength = 16

var ErrKeyNotConfigured = errors.New("ENCRYPTION_KEY not configured")

func loadKey() ([]byte, error) {
	raw := strings.TrimSpace(env.GetEnv("ENCRYPTION_KEY", ""))
	if len(raw) != 64 {
		return nil, ErrKeyNotConfigured
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
	}
	return key, nil
}

// Encrypt encrypts plaintext with the configured key. Empty input yields an
// empty ciphertext so unset tokens stay unset.
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := loadKey()
	if err != nil {
		return "", err
	}
	return EncryptWithKey(plaintext, key)
}

// Decrypt reverses Encrypt.
func Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}
	key, err := loadKey()
	if err != nil {
		return "", err
	}
	return DecryptWithKey(encrypted, key)
}

// EncryptWithKey encrypts with an explicit 32-byte key.
func EncryptWithKey(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return "", fmt.Errorf("failed to init gcm: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	// gcm.Seal appends the 16-byte auth tag to the ciphertext.
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext := sealed[:tagStart]
	authTag := sealed[tagStart:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(authTag) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptWithKey decrypts with an explicit 32-byte key.
func DecryptWithKey(encrypted string, key []byte) (string, error) {
	parts := strings.Split(encrypted, ":")
	if len(parts) != 3 {
		return "", errors.New("invalid encrypted token format")
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("invalid iv: %w", err)
	}
	authTag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("invalid auth tag: %w", err)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return "", fmt.Errorf("failed to init gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, authTag...), nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return string(plaintext), nil
}
