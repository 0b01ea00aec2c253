package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const apiKeyPrefix = "sk_live_"

const apiKeyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ApiKey is the credential for the public tracking API. Only the SHA-256
// hash and a display prefix are stored; the raw key is returned exactly once
// at generation time. An owner has at most one active key: generation
// revokes all prior keys in the same transaction as the insert.
type ApiKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	Name       string     `gorm:"type:varchar(100);not null;default:'Default API Key'" json:"name"`
	KeyHash    string     `gorm:"type:char(64);not null;uniqueIndex" json:"-"`
	KeyPrefix  string     `gorm:"type:varchar(20);not null" json:"key_prefix"`
	LastUsedAt *time.Time `gorm:"type:timestamp;default:null" json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `gorm:"type:timestamp;default:null" json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// IsRevoked reports whether the key has been invalidated.
func (k *ApiKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// HashAPIKey returns the hex SHA-256 digest used for key lookup.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKeyMaterial creates a new raw key together with its stored
// prefix and hash. The raw key must be handed to the caller and never
// persisted.
func GenerateAPIKeyMaterial() (rawKey, prefix, hash string, err error) {
	// Rejection sampling keeps the Base62 output unbiased.
	// 248 is the largest multiple of 62 below 256.
	const maxRandomByte = 248
	const secretLen = 48

	secret := make([]byte, 0, secretLen)
	buf := make([]byte, secretLen)
	for len(secret) < secretLen {
		if _, err := rand.Read(buf); err != nil {
			return "", "", "", err
		}
		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			secret = append(secret, apiKeyAlphabet[int(b)%len(apiKeyAlphabet)])
			if len(secret) == secretLen {
				break
			}
		}
	}

	rawKey = apiKeyPrefix + string(secret)
	prefix = rawKey[:len(apiKeyPrefix)+4]
	hash = HashAPIKey(rawKey)
	return rawKey, prefix, hash, nil
}
