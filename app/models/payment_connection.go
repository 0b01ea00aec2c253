package models

import (
	"time"

	"github.com/LinkTally/LinkTally/internal/pkg/crypt"
)

const (
	PaymentProviderStripe = "stripe"

	ConnectionStatusActive  = "active"
	ConnectionStatusRevoked = "revoked"
	ConnectionStatusError   = "error"
)

// PaymentConnection stores one authorization grant to read payment events
// from an external processor account. Access and refresh tokens are stored
// AES-GCM encrypted; the webhook/matching core only ever reads the owner
// and status.
type PaymentConnection struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index:ux_payment_connections_owner_account,unique,priority:1" json:"user_id"`
	Provider        string    `gorm:"type:varchar(20);not null;index:ux_payment_connections_owner_account,unique,priority:2" json:"provider"`
	AccountID       string    `gorm:"type:varchar(191);not null;index:ux_payment_connections_owner_account,unique,priority:3;index" json:"account_id"`
	AccessTokenEnc  string    `gorm:"type:text" json:"-"`
	RefreshTokenEnc string    `gorm:"type:text" json:"-"`
	Scope           string    `gorm:"type:varchar(100);default:''" json:"scope"`
	Status          string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the connection may still produce revenue.
func (pc *PaymentConnection) IsActive() bool {
	return pc.Status == ConnectionStatusActive
}

// DecryptedAccessToken returns the provider access token in plaintext. Only
// the OAuth glue calls this; event processing works from owner and status
// alone and never touches the secret.
func (pc *PaymentConnection) DecryptedAccessToken() (string, error) {
	return crypt.Decrypt(pc.AccessTokenEnc)
}

// DecryptedRefreshToken returns the provider refresh token in plaintext.
func (pc *PaymentConnection) DecryptedRefreshToken() (string, error) {
	return crypt.Decrypt(pc.RefreshTokenEnc)
}
