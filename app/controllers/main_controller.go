package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/LinkTally/LinkTally/internal/pkg/statistics"
)

// HandleStart serves the landing endpoint with the cached public aggregates.
func HandleStart(c *fiber.Ctx) error {
	statistics.UpdateCacheIfNeeded()
	stats := statistics.GetStatistics()

	return c.JSON(fiber.Map{
		"service":     "LinkTally",
		"total_links": stats.TotalLinks,
		"total_users": stats.TotalUsers,
		"logged_in":   isLoggedIn(c),
	})
}
