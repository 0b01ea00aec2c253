package controllers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/app/repository"
	"github.com/LinkTally/LinkTally/internal/pkg/stripeconnect"
)

// HandlePaymentConnectionList returns the caller's processor connections.
// Token material never leaves the database.
func HandlePaymentConnectionList(c *fiber.Ctx) error {
	conns, err := repository.GetGlobalFactory().GetPaymentConnectionRepository().ListByUser(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not load connections"})
	}

	return c.JSON(fiber.Map{"connections": conns})
}

// HandlePaymentConnectionDisconnect deauthorizes a connection upstream and
// marks it revoked locally. Events from the account are ignored afterwards;
// already-recorded revenue stays.
func HandlePaymentConnectionDisconnect(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid connection id"})
	}

	repo := repository.GetGlobalFactory().GetPaymentConnectionRepository()
	conn, err := repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Connection not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not load connection"})
	}
	if conn.UserID != currentUserID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Connection not found"})
	}

	if conn.Provider == models.PaymentProviderStripe {
		client := stripeconnect.NewClientFromEnv()
		if err := client.Deauthorize(c.Context(), conn.AccountID); err != nil {
			// Local revocation still proceeds: the webhook path checks our
			// status, not Stripe's.
			log.Printf("stripe deauthorize failed for connection %d: %v", conn.ID, err)
		}
	}

	if err := repo.UpdateStatus(conn.ID, models.ConnectionStatusRevoked); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not revoke connection"})
	}

	return c.JSON(fiber.Map{"success": true})
}
