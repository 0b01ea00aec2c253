package ingest

import (
	"github.com/LinkTally/LinkTally/internal/pkg/attribution"
	"github.com/stripe/stripe-go/v83"
)

// EventKind is the closed set of processor event types the pipeline
// understands. Anything else maps to EventKindUnsupported and is logged then
// ignored; adding a new kind means extending this enum and the dispatch in
// ParsePurchase, which the compiler checks.
type EventKind int

const (
	EventKindUnsupported EventKind = iota
	EventKindCheckoutCompleted
	EventKindPaymentIntentSucceeded
	EventKindChargeSucceeded
)

func (k EventKind) String() string {
	switch k {
	case EventKindCheckoutCompleted:
		return "checkout.session.completed"
	case EventKindPaymentIntentSucceeded:
		return "payment_intent.succeeded"
	case EventKindChargeSucceeded:
		return "charge.succeeded"
	default:
		return "unsupported"
	}
}

// KindOf classifies a Stripe event type.
func KindOf(t stripe.EventType) EventKind {
	switch t {
	case "checkout.session.completed":
		return EventKindCheckoutCompleted
	case "payment_intent.succeeded":
		return EventKindPaymentIntentSucceeded
	case "charge.succeeded":
		return EventKindChargeSucceeded
	default:
		return EventKindUnsupported
	}
}

// PurchaseEvent is the normalized payment extracted from a processor event:
// the attribution signal set plus the money and the upstream payment
// identity used as the ledger idempotency key.
type PurchaseEvent struct {
	Kind          EventKind
	PaymentID     string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	Signals       attribution.Signals
}

// Outcome summarizes how one webhook delivery was resolved.
type Outcome struct {
	Status         string
	LogID          uint
	RevenueEntryID *uint
	Duplicate      bool
}

const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
)
