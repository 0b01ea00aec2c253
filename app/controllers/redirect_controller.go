package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/LinkTally/LinkTally/app/repository"
	"github.com/LinkTally/LinkTally/internal/pkg/cache"
)

const redirectCacheTTL = 1 * time.Hour

func redirectCacheKey(code string) string {
	return "redirect:" + code
}

// HandleShortRedirect resolves a short code and redirects to the full
// tracking URL. Targets are cached in Redis; the cache is invalidated on
// link update and delete.
func HandleShortRedirect(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown link"})
	}

	if target, err := cache.Get(redirectCacheKey(code)); err == nil && target != "" {
		return c.Redirect(target, fiber.StatusFound)
	}

	link, err := repository.GetGlobalFactory().GetTrackingLinkRepository().GetByShortCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown link"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not resolve link"})
	}

	if err := cache.Set(redirectCacheKey(code), link.FullTrackingURL, redirectCacheTTL); err != nil {
		log.Printf("failed to cache redirect for %s: %v", code, err)
	}

	return c.Redirect(link.FullTrackingURL, fiber.StatusFound)
}
