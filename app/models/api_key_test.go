package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKeyMaterial(t *testing.T) {
	raw, prefix, hash, err := GenerateAPIKeyMaterial()
	require.NoError(t, err)

	assert.True(t, len(raw) == len("sk_live_")+48, "raw key length")
	assert.Equal(t, "sk_live_", raw[:len("sk_live_")])
	assert.Equal(t, raw[:len("sk_live_")+4], prefix)
	assert.Equal(t, HashAPIKey(raw), hash)
	assert.Len(t, hash, 64)

	for _, r := range raw[len("sk_live_"):] {
		assert.Contains(t, apiKeyAlphabet, string(r))
	}
}

func TestGenerateAPIKeyMaterialUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		raw, _, _, err := GenerateAPIKeyMaterial()
		require.NoError(t, err)
		require.False(t, seen[raw], "generated a duplicate key")
		seen[raw] = true
	}
}

func TestHashAPIKeyDeterministic(t *testing.T) {
	a := HashAPIKey("sk_live_abc")
	b := HashAPIKey("sk_live_abc")
	c := HashAPIKey("sk_live_abd")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestApiKeyIsRevoked(t *testing.T) {
	key := &ApiKey{}
	assert.False(t, key.IsRevoked())

	now := key.CreatedAt
	key.RevokedAt = &now
	assert.True(t, key.IsRevoked())
}
