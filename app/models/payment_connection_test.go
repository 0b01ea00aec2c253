package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LinkTally/LinkTally/internal/pkg/crypt"
)

func TestPaymentConnectionTokenRoundTrip(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")

	accessEnc, err := crypt.Encrypt("sk_access_secret")
	require.NoError(t, err)
	refreshEnc, err := crypt.Encrypt("rt_refresh_secret")
	require.NoError(t, err)

	conn := &PaymentConnection{
		UserID:          1,
		Provider:        PaymentProviderStripe,
		AccountID:       "acct_1",
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
	}

	access, err := conn.DecryptedAccessToken()
	require.NoError(t, err)
	assert.Equal(t, "sk_access_secret", access)

	refresh, err := conn.DecryptedRefreshToken()
	require.NoError(t, err)
	assert.Equal(t, "rt_refresh_secret", refresh)
}

func TestPaymentConnectionEmptyTokens(t *testing.T) {
	conn := &PaymentConnection{}

	access, err := conn.DecryptedAccessToken()
	require.NoError(t, err)
	assert.Empty(t, access)
}

func TestPaymentConnectionIsActive(t *testing.T) {
	conn := &PaymentConnection{Status: ConnectionStatusActive}
	assert.True(t, conn.IsActive())

	conn.Status = ConnectionStatusRevoked
	assert.False(t, conn.IsActive())

	conn.Status = ConnectionStatusError
	assert.False(t, conn.IsActive())
}
