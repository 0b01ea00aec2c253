package tracking

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Alphabet for short codes (62 characters: 0-9, a-z, A-Z)
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ShortCodeLength is the length of generated tracking-link short codes.
const ShortCodeLength = 8

// ErrShortCodeExhausted is returned when collision-checked generation fails
// to find a free code within the retry budget.
var ErrShortCodeExhausted = errors.New("short code generation exhausted retries")

// GenerateShortCode creates a cryptographically secure random Base62 code.
func GenerateShortCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid short code length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 248 is the largest multiple of 62 below 256.
	const maxRandomByte = 248

	code := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			code[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(code), nil
}

// GenerateUniqueShortCode generates a short code and verifies it is unused
// via the supplied existence check, retrying on collision. It fails closed
// after maxAttempts rather than handing out a duplicate code.
func GenerateUniqueShortCode(length, maxAttempts int, exists func(code string) (bool, error)) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := GenerateShortCode(length)
		if err != nil {
			return "", err
		}
		taken, err := exists(code)
		if err != nil {
			return "", fmt.Errorf("short code collision check failed: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrShortCodeExhausted
}
