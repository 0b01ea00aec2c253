package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/app/repository"
)

type apiKeyGenerateRequest struct {
	Name string `json:"name"`
}

// HandleAPIKeyGenerate issues a fresh API key. All prior keys of the owner
// are revoked in the same transaction as the insert, so there is never a
// window with two usable keys. The raw key appears in this response and
// nowhere else.
func HandleAPIKeyGenerate(c *fiber.Ctx) error {
	var req apiKeyGenerateRequest
	// Body is optional; an empty body keeps the default key name.
	_ = c.BodyParser(&req)

	rawKey, prefix, hash, err := models.GenerateAPIKeyMaterial()
	if err != nil {
		log.Printf("api key generation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not generate API key"})
	}

	key := models.ApiKey{
		UserID:    currentUserID(c),
		KeyHash:   hash,
		KeyPrefix: prefix,
	}
	if req.Name != "" {
		key.Name = req.Name
	}

	if err := repository.GetGlobalFactory().GetApiKeyRepository().RotateKey(&key); err != nil {
		log.Printf("api key rotation failed for user %d: %v", key.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not store API key"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key":    rawKey,
		"key_prefix": key.KeyPrefix,
		"name":       key.Name,
		"created_at": key.CreatedAt,
	})
}

// HandleAPIKeyList returns the caller's keys: prefix and timestamps only,
// never hashes.
func HandleAPIKeyList(c *fiber.Ctx) error {
	keys, err := repository.GetGlobalFactory().GetApiKeyRepository().ListByUser(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not load API keys"})
	}

	out := make([]fiber.Map, 0, len(keys))
	for i := range keys {
		out = append(out, fiber.Map{
			"name":         keys[i].Name,
			"key_prefix":   keys[i].KeyPrefix,
			"created_at":   keys[i].CreatedAt,
			"last_used_at": formatTimePtr(keys[i].LastUsedAt),
			"revoked_at":   formatTimePtr(keys[i].RevokedAt),
		})
	}

	return c.JSON(fiber.Map{"keys": out})
}
