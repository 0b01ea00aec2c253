package models

import (
	"fmt"
	"math"
	"time"
)

const (
	RevenueSourceManual    = "manual"
	RevenueSourceAutomatic = "automatic"

	RevenueProcessorAPI    = "api"
	RevenueProcessorStripe = "stripe"
)

// RevenueEntry is one attributed unit of revenue, linked to exactly one
// tracking link. Amounts are stored in currency minor units. Entries are
// append-only: they are aggregated for analytics but never edited in place.
//
// For processor-sourced entries (processor, upstream_payment_id) is unique.
// UpstreamPaymentID is nullable so manual and direct-API entries, which have
// no processor payment identity, never participate in the uniqueness check
// (MySQL permits repeated NULLs under a unique index).
type RevenueEntry struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"not null;index" json:"user_id"`
	TrackingLinkID      uint      `gorm:"not null;index" json:"tracking_link_id"`
	AmountCents         int64     `gorm:"not null" json:"amount_cents"`
	Currency            string    `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Description         string    `gorm:"type:varchar(500);default:''" json:"description"`
	Source              string    `gorm:"type:varchar(20);not null;index" json:"source"`
	Processor           string    `gorm:"type:varchar(20);default:'';index:ux_revenue_entries_processor_payment,unique,priority:1" json:"processor,omitempty"`
	UpstreamPaymentID   *string   `gorm:"type:varchar(191);default:null;index:ux_revenue_entries_processor_payment,unique,priority:2" json:"upstream_payment_id,omitempty"`
	PaymentConnectionID *uint     `gorm:"index" json:"payment_connection_id,omitempty"`
	EntryDate           time.Time `gorm:"not null;index" json:"entry_date"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Amount returns the entry amount in major units.
func (e *RevenueEntry) Amount() float64 {
	return float64(e.AmountCents) / 100
}

// AmountToCents converts a major-unit amount to minor units, rounding to the
// nearest cent. Callers validate sign before converting.
func AmountToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FormatAmount renders a minor-unit amount as a decimal string.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
