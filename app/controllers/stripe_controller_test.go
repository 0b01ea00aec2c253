package controllers

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/app/repository"
	"github.com/LinkTally/LinkTally/internal/pkg/database"
)

const testWebhookSecret = "whsec_test_secret"

var (
	webhookSetupOnce sync.Once
	webhookDB        *gorm.DB
	webhookApp       *fiber.App
)

// setupWebhookApp mounts the webhook route against a shared in-memory
// database. The repository factory is a process-wide singleton, so tests
// isolate through distinct event ids and accounts.
func setupWebhookApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	webhookSetupOnce.Do(func() {
		db, err := gorm.Open(sqlite.Open("file:webhookctl?mode=memory&cache=shared"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			panic(err)
		}
		if err := db.AutoMigrate(
			&models.TrackingLink{},
			&models.PaymentConnection{},
			&models.WebhookEventLog{},
			&models.RevenueEntry{},
		); err != nil {
			panic(err)
		}

		database.DB = db
		repository.InitializeFactory(db)

		app := fiber.New()
		app.Post("/webhooks/stripe", HandleStripeWebhook)

		webhookDB = db
		webhookApp = app
	})
	return webhookApp, webhookDB
}

// signStripePayload produces a Stripe-Signature header the way Stripe's
// CLI would: current timestamp, v1 scheme.
func signStripePayload(payload []byte) string {
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, payload, testWebhookSecret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

func checkoutPayload(eventID, account, campaign string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"api_version": %q,
		"type": "checkout.session.completed",
		"account": %q,
		"created": %d,
		"data": {
			"object": {
				"id": "cs_%s",
				"amount_total": 2500,
				"currency": "usd",
				"metadata": {"utm_campaign": %q}
			}
		}
	}`, eventID, stripe.APIVersion, account, time.Now().Unix(), eventID, campaign))
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	decoded := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func seedWebhookConnection(t *testing.T, db *gorm.DB, userID uint, accountID string) *models.PaymentConnection {
	t.Helper()
	conn := &models.PaymentConnection{
		UserID:    userID,
		Provider:  models.PaymentProviderStripe,
		AccountID: accountID,
		Status:    models.ConnectionStatusActive,
	}
	require.NoError(t, db.Create(conn).Error)
	return conn
}

func seedWebhookLink(t *testing.T, db *gorm.DB, userID uint, campaign, code string) *models.TrackingLink {
	t.Helper()
	link := &models.TrackingLink{
		UserID:          userID,
		Title:           "Campaign " + campaign,
		Platform:        models.PlatformInstagram,
		DestinationURL:  "https://shop.example/p",
		UTMCampaign:     campaign,
		ShortCode:       code,
		FullTrackingURL: "https://shop.example/p?utm_campaign=" + campaign,
	}
	require.NoError(t, db.Create(link).Error)
	return link
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)
	app, db := setupWebhookApp(t)

	payload := checkoutPayload("evt_http_bad", "acct_http_bad", "reel-http")

	resp, body := postWebhook(t, app, payload, "t=12345,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["error"])

	// An unverified payload's claimed event id is untrusted: no log row.
	var count int64
	require.NoError(t, db.Model(&models.WebhookEventLog{}).
		Where("event_id = ?", "evt_http_bad").Count(&count).Error)
	assert.Zero(t, count)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)
	app, _ := setupWebhookApp(t)

	resp, _ := postWebhook(t, app, checkoutPayload("evt_http_nosig", "acct_http_bad", "reel-http"), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookProcessesCheckout(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)
	app, db := setupWebhookApp(t)
	conn := seedWebhookConnection(t, db, 11, "acct_http_ok")
	link := seedWebhookLink(t, db, 11, "reel-http-ok", "whk1")

	payload := checkoutPayload("evt_http_ok", "acct_http_ok", "reel-http-ok")

	resp, body := postWebhook(t, app, payload, signStripePayload(payload))
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, true, body["received"])

	var logRow models.WebhookEventLog
	require.NoError(t, db.Where("event_id = ?", "evt_http_ok").First(&logRow).Error)
	assert.Equal(t, models.WebhookStatusProcessed, logRow.Status)
	require.NotNil(t, logRow.ConnectionID)
	assert.Equal(t, conn.ID, *logRow.ConnectionID)

	var entry models.RevenueEntry
	require.NoError(t, db.Where("tracking_link_id = ?", link.ID).First(&entry).Error)
	assert.Equal(t, int64(2500), entry.AmountCents)

	// Redelivery over HTTP acknowledges without a second entry.
	resp, body = postWebhook(t, app, payload, signStripePayload(payload))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["received"])

	var entryCount int64
	require.NoError(t, db.Model(&models.RevenueEntry{}).
		Where("tracking_link_id = ?", link.ID).Count(&entryCount).Error)
	assert.Equal(t, int64(1), entryCount)
}

func TestWebhookAcknowledgesIgnoredOutcome(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)
	app, db := setupWebhookApp(t)

	payload := checkoutPayload("evt_http_orphan", "acct_http_unknown", "reel-http")

	resp, body := postWebhook(t, app, payload, signStripePayload(payload))
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, true, body["received"])

	var logRow models.WebhookEventLog
	require.NoError(t, db.Where("event_id = ?", "evt_http_orphan").First(&logRow).Error)
	assert.Equal(t, models.WebhookStatusIgnored, logRow.Status)
}

func TestWebhookProcessingFailureReturns500(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)
	app, db := setupWebhookApp(t)
	seedWebhookConnection(t, db, 12, "acct_http_broken")

	// Supported event type with no data member: verified, logged, then
	// fails during parsing so Stripe redelivers.
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_http_broken",
		"api_version": %q,
		"type": "checkout.session.completed",
		"account": "acct_http_broken",
		"created": %d
	}`, stripe.APIVersion, time.Now().Unix()))

	resp, body := postWebhook(t, app, payload, signStripePayload(payload))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal_server_error", body["error"])

	var logRow models.WebhookEventLog
	require.NoError(t, db.Where("event_id = ?", "evt_http_broken").First(&logRow).Error)
	assert.Equal(t, models.WebhookStatusFailed, logRow.Status)
}
