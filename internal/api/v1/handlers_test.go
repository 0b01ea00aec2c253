package apiv1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/app/repository"
	"github.com/LinkTally/LinkTally/internal/pkg/database"
)

var (
	setupOnce sync.Once
	testDB    *gorm.DB
	testApp   *fiber.App
)

// setupTestApp wires the v1 routes against a shared in-memory database. The
// repository factory is a process-wide singleton, so the whole package runs
// against one store and tests isolate through distinct seed rows.
func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	setupOnce.Do(func() {
		db, err := gorm.Open(sqlite.Open("file:apiv1?mode=memory&cache=shared"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			panic(err)
		}
		// users carries a MySQL collation in its column tag, so the table
		// is created by hand for sqlite.
		if err := db.Exec(`CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT,
			email TEXT UNIQUE,
			password TEXT,
			role TEXT DEFAULT 'user',
			status TEXT DEFAULT 'active',
			last_login_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`).Error; err != nil {
			panic(err)
		}
		if err := db.AutoMigrate(
			&models.TrackingLink{},
			&models.RevenueEntry{},
			&models.ApiKey{},
		); err != nil {
			panic(err)
		}

		database.DB = db
		repository.InitializeFactory(db)

		app := fiber.New()
		RegisterHandlers(app.Group("/api/v1"), NewAPIServer())

		testDB = db
		testApp = app
	})
	return testApp, testDB
}

func seedUserWithKey(t *testing.T, db *gorm.DB, email string) (*models.User, string) {
	t.Helper()
	user := &models.User{Name: "Creator", Email: email, Password: "x", Status: models.STATUS_ACTIVE, Role: models.ROLE_USER}
	require.NoError(t, db.Create(user).Error)

	raw, prefix, hash, err := models.GenerateAPIKeyMaterial()
	require.NoError(t, err)
	key := &models.ApiKey{UserID: user.ID, Name: "Default API Key", KeyHash: hash, KeyPrefix: prefix}
	require.NoError(t, db.Create(key).Error)
	return user, raw
}

func seedCampaignLink(t *testing.T, db *gorm.DB, userID uint, campaign, code string) *models.TrackingLink {
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

func doJSON(t *testing.T, app *fiber.App, method, path, apiKey string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
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

func TestPing(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/ping", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", body["ping"])
}

func TestTrackPurchaseRequiresKey(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/track/purchase", "", map[string]interface{}{
		"utm_campaign": "reelA",
		"amount":       10,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestTrackPurchaseRejectsUnknownKey(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/track/purchase", "sk_live_doesnotexist", map[string]interface{}{
		"utm_campaign": "reelA",
		"amount":       10,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTrackPurchaseRecordsRevenue(t *testing.T) {
	app, db := setupTestApp(t)
	user, apiKey := seedUserWithKey(t, db, "record@example.com")
	link := seedCampaignLink(t, db, user.ID, "reel-record", "rec1")

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/track/purchase", apiKey, map[string]interface{}{
		"utm_campaign": "reel-record",
		"amount":       49.99,
		"currency":     "eur",
		"customer_id":  "cust_1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, link.Title, body["campaign"])

	var entry models.RevenueEntry
	require.NoError(t, db.Where("tracking_link_id = ?", link.ID).First(&entry).Error)
	assert.Equal(t, int64(4999), entry.AmountCents)
	assert.Equal(t, "eur", entry.Currency)
	assert.Equal(t, user.ID, entry.UserID)
	assert.Nil(t, entry.UpstreamPaymentID)
}

func TestTrackPurchaseUnknownCampaign(t *testing.T) {
	app, db := setupTestApp(t)
	_, apiKey := seedUserWithKey(t, db, "miss@example.com")

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/track/purchase", apiKey, map[string]interface{}{
		"utm_campaign": "no-such-campaign",
		"amount":       10,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])
}

func TestTrackPurchaseValidatesInput(t *testing.T) {
	app, db := setupTestApp(t)
	_, apiKey := seedUserWithKey(t, db, "invalid@example.com")

	cases := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"zero amount", map[string]interface{}{"utm_campaign": "x", "amount": 0}},
		{"negative amount", map[string]interface{}{"utm_campaign": "x", "amount": -5}},
		{"no signal", map[string]interface{}{"amount": 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/api/v1/track/purchase", apiKey, tc.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "validation_error", body["error"])
		})
	}
}

func TestTrackPurchaseScopedToKeyOwner(t *testing.T) {
	app, db := setupTestApp(t)
	owner, _ := seedUserWithKey(t, db, "owner@example.com")
	seedCampaignLink(t, db, owner.ID, "reel-owner", "own1")

	_, strangerKey := seedUserWithKey(t, db, "stranger@example.com")

	// The stranger's key cannot attribute against the owner's campaign.
	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/track/purchase", strangerKey, map[string]interface{}{
		"utm_campaign": "reel-owner",
		"amount":       10,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetLinksReturnsRevenueTotals(t *testing.T) {
	app, db := setupTestApp(t)
	user, apiKey := seedUserWithKey(t, db, "links@example.com")
	link := seedCampaignLink(t, db, user.ID, "reel-links", "lnk1")

	for i := 0; i < 2; i++ {
		_, body := doJSON(t, app, http.MethodPost, "/api/v1/track/purchase", apiKey, map[string]interface{}{
			"utm_campaign": "reel-links",
			"amount":       10,
		})
		require.Equal(t, true, body["success"])
	}

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/links", apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	links, ok := body["links"].([]interface{})
	require.True(t, ok, "body: %v", body)
	require.Len(t, links, 1)

	row := links[0].(map[string]interface{})
	assert.Equal(t, float64(2000), row["total_revenue_cents"])
	rowLink := row["link"].(map[string]interface{})
	assert.Equal(t, link.ShortCode, rowLink["short_code"])
}

func TestGetRevenueEntriesFiltersByLink(t *testing.T) {
	app, db := setupTestApp(t)
	user, apiKey := seedUserWithKey(t, db, "entries@example.com")
	linkA := seedCampaignLink(t, db, user.ID, "reel-entries-a", "ent1")
	seedCampaignLink(t, db, user.ID, "reel-entries-b", "ent2")

	for _, campaign := range []string{"reel-entries-a", "reel-entries-a", "reel-entries-b"} {
		_, body := doJSON(t, app, http.MethodPost, "/api/v1/track/purchase", apiKey, map[string]interface{}{
			"utm_campaign": campaign,
			"amount":       5,
		})
		require.Equal(t, true, body["success"])
	}

	path := fmt.Sprintf("/api/v1/revenue-entries?tracking_link_uuid=%s", linkA.UUID)
	resp, body := doJSON(t, app, http.MethodGet, path, apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entries, ok := body["entries"].([]interface{})
	require.True(t, ok, "body: %v", body)
	assert.Len(t, entries, 2)
}
