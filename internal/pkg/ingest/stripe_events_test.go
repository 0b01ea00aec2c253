package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
)

func rawEvent(eventType string, payload string) *stripe.Event {
	return &stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(payload)},
	}
}

func TestParseCheckoutSessionPrefersPaymentIntentID(t *testing.T) {
	event := rawEvent("checkout.session.completed", `{
		"id": "cs_abc",
		"payment_intent": "pi_abc",
		"amount_total": 4999,
		"currency": "eur",
		"customer_details": {"email": "buyer@example.com"},
		"metadata": {"utm_campaign": "summer", "utm_source": "instagram"}
	}`)

	purchase, err := ParsePurchase(event)
	require.NoError(t, err)
	assert.Equal(t, EventKindCheckoutCompleted, purchase.Kind)
	assert.Equal(t, "pi_abc", purchase.PaymentID)
	assert.Equal(t, int64(4999), purchase.AmountCents)
	assert.Equal(t, "eur", purchase.Currency)
	assert.Equal(t, "buyer@example.com", purchase.CustomerEmail)
	assert.Equal(t, "summer", purchase.Signals.UTMCampaign)
	assert.Equal(t, "instagram", purchase.Signals.UTMSource)
}

func TestParseCheckoutSessionFallsBackToSessionID(t *testing.T) {
	event := rawEvent("checkout.session.completed", `{
		"id": "cs_abc",
		"amount_total": 100,
		"currency": "usd"
	}`)

	purchase, err := ParsePurchase(event)
	require.NoError(t, err)
	assert.Equal(t, "cs_abc", purchase.PaymentID)
	assert.False(t, purchase.Signals.HasAny())
}

func TestParseChargeRollsUpToPaymentIntent(t *testing.T) {
	event := rawEvent("charge.succeeded", `{
		"id": "ch_1",
		"payment_intent": "pi_shared",
		"amount": 750,
		"currency": "usd",
		"metadata": {"campaign_id": "42"}
	}`)

	purchase, err := ParsePurchase(event)
	require.NoError(t, err)
	assert.Equal(t, EventKindChargeSucceeded, purchase.Kind)
	assert.Equal(t, "pi_shared", purchase.PaymentID)
	assert.Equal(t, int64(750), purchase.AmountCents)
	assert.Equal(t, "42", purchase.Signals.CampaignID)
}

func TestParsePaymentIntent(t *testing.T) {
	event := rawEvent("payment_intent.succeeded", `{
		"id": "pi_1",
		"amount": 1299,
		"currency": "gbp",
		"receipt_email": "r@example.com",
		"metadata": {"utm_campaign": "reelA", "utm_content": "v2"}
	}`)

	purchase, err := ParsePurchase(event)
	require.NoError(t, err)
	assert.Equal(t, EventKindPaymentIntentSucceeded, purchase.Kind)
	assert.Equal(t, "pi_1", purchase.PaymentID)
	assert.Equal(t, "r@example.com", purchase.CustomerEmail)
	assert.Equal(t, "v2", purchase.Signals.UTMContent)
}

func TestParseUnsupportedType(t *testing.T) {
	purchase, err := ParsePurchase(rawEvent("invoice.paid", `{}`))
	require.NoError(t, err)
	assert.Equal(t, EventKindUnsupported, purchase.Kind)
}

func TestParseMissingDataPayload(t *testing.T) {
	event := &stripe.Event{ID: "evt_bare", Type: "checkout.session.completed"}
	_, err := ParsePurchase(event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data payload")

	// Unsupported types never reach the payload, with or without one.
	purchase, err := ParsePurchase(&stripe.Event{ID: "evt_bare", Type: "invoice.paid"})
	require.NoError(t, err)
	assert.Equal(t, EventKindUnsupported, purchase.Kind)
}

func TestParseMalformedPayload(t *testing.T) {
	_, err := ParsePurchase(rawEvent("checkout.session.completed", `{"amount_total": "not-a-number"}`))
	require.Error(t, err)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, EventKindCheckoutCompleted, KindOf("checkout.session.completed"))
	assert.Equal(t, EventKindPaymentIntentSucceeded, KindOf("payment_intent.succeeded"))
	assert.Equal(t, EventKindChargeSucceeded, KindOf("charge.succeeded"))
	assert.Equal(t, EventKindUnsupported, KindOf("customer.created"))
}
