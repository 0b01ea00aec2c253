package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/LinkTally/LinkTally/internal/pkg/attribution"
	"github.com/stripe/stripe-go/v83"
)

// ParsePurchase decodes a supported Stripe event into a normalized purchase.
// For checkout sessions the payment-intent id is preferred as the payment
// identity, so a later payment_intent.succeeded for the same charge hits the
// same ledger idempotency key instead of recording twice.
func ParsePurchase(event *stripe.Event) (PurchaseEvent, error) {
	kind := KindOf(event.Type)
	if kind != EventKindUnsupported && event.Data == nil {
		// Signature-valid but structurally broken; surface as a failure so
		// the log row records it instead of panicking on the nil payload.
		return PurchaseEvent{}, fmt.Errorf("event %s carries no data payload", event.ID)
	}
	switch kind {
	case EventKindCheckoutCompleted:
		return parseCheckoutSession(event)
	case EventKindPaymentIntentSucceeded:
		return parsePaymentIntent(event)
	case EventKindChargeSucceeded:
		return parseCharge(event)
	case EventKindUnsupported:
		return PurchaseEvent{Kind: EventKindUnsupported}, nil
	default:
		return PurchaseEvent{Kind: EventKindUnsupported}, nil
	}
}

func parseCheckoutSession(event *stripe.Event) (PurchaseEvent, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return PurchaseEvent{}, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	paymentID := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		paymentID = session.PaymentIntent.ID
	}

	email := session.CustomerEmail
	if email == "" && session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}

	return PurchaseEvent{
		Kind:          EventKindCheckoutCompleted,
		PaymentID:     paymentID,
		AmountCents:   session.AmountTotal,
		Currency:      string(session.Currency),
		CustomerEmail: email,
		Signals:       signalsFromMetadata(session.Metadata),
	}, nil
}

func parsePaymentIntent(event *stripe.Event) (PurchaseEvent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return PurchaseEvent{}, fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	return PurchaseEvent{
		Kind:          EventKindPaymentIntentSucceeded,
		PaymentID:     intent.ID,
		AmountCents:   intent.Amount,
		Currency:      string(intent.Currency),
		CustomerEmail: intent.ReceiptEmail,
		Signals:       signalsFromMetadata(intent.Metadata),
	}, nil
}

func parseCharge(event *stripe.Event) (PurchaseEvent, error) {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return PurchaseEvent{}, fmt.Errorf("failed to unmarshal charge: %w", err)
	}

	// Charges roll up to their payment intent when one exists, so the
	// charge and its intent share one ledger identity.
	paymentID := charge.ID
	if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
		paymentID = charge.PaymentIntent.ID
	}

	return PurchaseEvent{
		Kind:          EventKindChargeSucceeded,
		PaymentID:     paymentID,
		AmountCents:   charge.Amount,
		Currency:      string(charge.Currency),
		CustomerEmail: charge.ReceiptEmail,
		Signals:       signalsFromMetadata(charge.Metadata),
	}, nil
}

// signalsFromMetadata reads the attribution contract fields the capture
// script writes into processor metadata: campaign_id plus the five UTM
// parameters.
func signalsFromMetadata(metadata map[string]string) attribution.Signals {
	if metadata == nil {
		return attribution.Signals{}
	}
	return attribution.Signals{
		CampaignID:  metadata["campaign_id"],
		UTMSource:   metadata["utm_source"],
		UTMMedium:   metadata["utm_medium"],
		UTMCampaign: metadata["utm_campaign"],
		UTMTerm:     metadata["utm_term"],
		UTMContent:  metadata["utm_content"],
	}
}
