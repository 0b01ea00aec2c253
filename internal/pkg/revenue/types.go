package revenue

import (
	"errors"
	"time"
)

// ErrValidation covers bad caller input to the ledger (negative amounts,
// missing link). It maps to a 400 at the HTTP layer and is never retried.
var ErrValidation = errors.New("invalid revenue input")

// AutomaticEntry is the normalized input for processor-sourced revenue.
type AutomaticEntry struct {
	UserID              uint
	TrackingLinkID      uint
	AmountCents         int64
	Currency            string
	Description         string
	Processor           string
	UpstreamPaymentID   string
	PaymentConnectionID *uint
	EntryDate           time.Time
}

// ManualEntry is the input for user-entered revenue. Manual entries are
// always appended; there is no idempotency domain for them.
type ManualEntry struct {
	UserID         uint
	TrackingLinkID uint
	AmountCents    int64
	Currency       string
	Description    string
	EntryDate      time.Time
}
