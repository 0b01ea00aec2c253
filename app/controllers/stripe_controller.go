package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/app/repository"
	"github.com/LinkTally/LinkTally/internal/pkg/crypt"
	"github.com/LinkTally/LinkTally/internal/pkg/database"
	"github.com/LinkTally/LinkTally/internal/pkg/env"
	"github.com/LinkTally/LinkTally/internal/pkg/ingest"
	"github.com/LinkTally/LinkTally/internal/pkg/session"
	"github.com/LinkTally/LinkTally/internal/pkg/statistics"
	"github.com/LinkTally/LinkTally/internal/pkg/stripeconnect"
)

const stripeStateKey = "stripe_connect_state"

// HandleStripeConnect starts the Stripe Connect OAuth flow for the
// logged-in user.
func HandleStripeConnect(c *fiber.Ctx) error {
	state := uuid.NewString()
	if err := session.SetSessionValue(c, stripeStateKey, state); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Session unavailable"})
	}

	client := stripeconnect.NewClientFromEnv()
	authorizeURL, err := client.AuthorizeURLWithState(state)
	if err != nil {
		log.Printf("stripe connect setup error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Stripe Connect is not configured"})
	}

	return c.Redirect(authorizeURL, fiber.StatusSeeOther)
}

// HandleStripeCallback completes the Connect flow: state check, code
// exchange, token encryption, connection upsert. Reconnecting the same
// account updates the stored grant instead of creating a second row.
func HandleStripeCallback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "oauth_denied", "message": c.Query("error_description", errParam)})
	}

	state := c.Query("state")
	if state == "" || state != session.GetSessionValue(c, stripeStateKey) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "OAuth state mismatch"})
	}
	_ = session.SetSessionValue(c, stripeStateKey, "")

	client := stripeconnect.NewClientFromEnv()
	token, err := client.ExchangeCode(c.Context(), c.Query("code"))
	if err != nil {
		log.Printf("stripe token exchange failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "bad_gateway", "message": "Stripe token exchange failed"})
	}

	accessEnc, err := crypt.Encrypt(token.AccessToken)
	if err != nil {
		log.Printf("token encryption failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not store connection"})
	}
	refreshEnc := ""
	if token.RefreshToken != "" {
		if refreshEnc, err = crypt.Encrypt(token.RefreshToken); err != nil {
			log.Printf("token encryption failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not store connection"})
		}
	}

	conn := models.PaymentConnection{
		UserID:          currentUserID(c),
		Provider:        models.PaymentProviderStripe,
		AccountID:       token.StripeUserID,
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		Scope:           token.Scope,
		Status:          models.ConnectionStatusActive,
	}
	if err := repository.GetGlobalFactory().GetPaymentConnectionRepository().Upsert(&conn); err != nil {
		log.Printf("payment connection upsert failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not store connection"})
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleStripeWebhook receives processor events. A bad signature is a 400
// with no event log row; processing failures return 500 so Stripe
// redelivers. Successful and ignored deliveries both acknowledge with 200.
func HandleStripeWebhook(c *fiber.Ctx) error {
	body := c.Body()
	sig := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	event, err := stripe.ConstructEvent(body, sig, secret)
	if err != nil {
		log.Printf("stripe webhook signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid signature"})
	}

	svc := ingest.NewServiceFromDB(database.GetDB())
	outcome, err := svc.ProcessStripeEvent(c.Context(), &event, body)
	if err != nil {
		log.Printf("stripe event %s processing failed: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Event processing failed"})
	}

	if outcome.Status == ingest.OutcomeProcessed {
		go statistics.UpdateStatisticsCache()
	}

	return c.JSON(fiber.Map{"received": true})
}
