package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/app/repository"
	"github.com/LinkTally/LinkTally/internal/pkg/cache"
	"github.com/LinkTally/LinkTally/internal/pkg/database"
	"github.com/LinkTally/LinkTally/internal/pkg/revenue"
	"github.com/LinkTally/LinkTally/internal/pkg/statistics"
	"github.com/LinkTally/LinkTally/internal/pkg/tracking"
)

const shortCodeMaxAttempts = 5

type trackingLinkRequest struct {
	Title          string `json:"title"`
	Platform       string `json:"platform"`
	DestinationURL string `json:"destination_url"`
	UTMSource      string `json:"utm_source"`
	UTMMedium      string `json:"utm_medium"`
	UTMCampaign    string `json:"utm_campaign"`
	UTMTerm        string `json:"utm_term"`
	UTMContent     string `json:"utm_content"`
}

// HandleCreateTrackingLink creates a tracking link with its derived short
// code and full tracking URL.
func HandleCreateTrackingLink(c *fiber.Ctx) error {
	var req trackingLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	link := models.TrackingLink{
		UserID:         currentUserID(c),
		Title:          req.Title,
		Platform:       req.Platform,
		DestinationURL: req.DestinationURL,
		UTMSource:      req.UTMSource,
		UTMMedium:      req.UTMMedium,
		UTMCampaign:    req.UTMCampaign,
		UTMTerm:        req.UTMTerm,
		UTMContent:     req.UTMContent,
	}

	if err := link.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	}

	fullURL, err := tracking.BuildTrackingURL(link.DestinationURL, utmFieldsOf(&link))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	}
	link.FullTrackingURL = fullURL

	repo := repository.GetGlobalFactory().GetTrackingLinkRepository()
	code, err := tracking.GenerateUniqueShortCode(tracking.ShortCodeLength, shortCodeMaxAttempts, repo.ShortCodeExists)
	if err != nil {
		log.Printf("short code generation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not allocate short code"})
	}
	link.ShortCode = code

	if err := repo.Create(&link); err != nil {
		log.Printf("tracking link create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not create tracking link"})
	}

	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(link)
}

// HandleListTrackingLinks returns the caller's links, newest first, with
// attributed revenue totals merged in.
func HandleListTrackingLinks(c *fiber.Ctx) error {
	userID := currentUserID(c)

	repo := repository.GetGlobalFactory().GetTrackingLinkRepository()
	links, err := repo.ListByUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not load tracking links"})
	}

	sums, err := revenue.NewServiceFromDB(database.GetDB()).SumByLink(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not load revenue totals"})
	}

	out := make([]fiber.Map, 0, len(links))
	for i := range links {
		cents := sums[links[i].ID]
		out = append(out, fiber.Map{
			"link":                links[i],
			"total_revenue_cents": cents,
			"total_revenue":       models.FormatAmount(cents),
		})
	}

	return c.JSON(fiber.Map{"links": out})
}

// HandleGetTrackingLink returns one owned link by UUID.
func HandleGetTrackingLink(c *fiber.Ctx) error {
	link, err := ownedLinkFromParam(c)
	if err != nil {
		return err
	}
	return c.JSON(link)
}

// HandleUpdateTrackingLink applies UTM/destination/metadata edits and
// regenerates the full tracking URL. The URL is derived state and is never
// accepted from the client.
func HandleUpdateTrackingLink(c *fiber.Ctx) error {
	link, err := ownedLinkFromParam(c)
	if err != nil {
		return err
	}

	var req trackingLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	if req.Title != "" {
		link.Title = req.Title
	}
	if req.Platform != "" {
		link.Platform = req.Platform
	}
	if req.DestinationURL != "" {
		link.DestinationURL = req.DestinationURL
	}
	link.UTMSource = req.UTMSource
	link.UTMMedium = req.UTMMedium
	link.UTMCampaign = req.UTMCampaign
	link.UTMTerm = req.UTMTerm
	link.UTMContent = req.UTMContent

	if err := link.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	}

	fullURL, err := tracking.BuildTrackingURL(link.DestinationURL, utmFieldsOf(link))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	}
	link.FullTrackingURL = fullURL

	repo := repository.GetGlobalFactory().GetTrackingLinkRepository()
	if err := repo.Update(link); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not update tracking link"})
	}

	// Drop the cached redirect target so the next hit sees the new URL.
	if err := cache.Delete(redirectCacheKey(link.ShortCode)); err != nil {
		log.Printf("failed to invalidate redirect cache for %s: %v", link.ShortCode, err)
	}

	return c.JSON(link)
}

// HandleDeleteTrackingLink soft-deletes an owned link. Revenue entries that
// reference it are kept.
func HandleDeleteTrackingLink(c *fiber.Ctx) error {
	link, err := ownedLinkFromParam(c)
	if err != nil {
		return err
	}

	repo := repository.GetGlobalFactory().GetTrackingLinkRepository()
	if err := repo.Delete(link.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not delete tracking link"})
	}

	if err := cache.Delete(redirectCacheKey(link.ShortCode)); err != nil {
		log.Printf("failed to invalidate redirect cache for %s: %v", link.ShortCode, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func ownedLinkFromParam(c *fiber.Ctx) (*models.TrackingLink, error) {
	uuid := c.Params("uuid")
	if uuid == "" {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "uuid missing"})
	}
	return lookupOwnedLink(c, uuid)
}

// lookupOwnedLink resolves a link UUID within the caller's scope, mapping
// lookup failures to the JSON error responses shared by all link endpoints.
func lookupOwnedLink(c *fiber.Ctx, uuid string) (*models.TrackingLink, error) {
	repo := repository.GetGlobalFactory().GetTrackingLinkRepository()
	link, err := repo.GetOwned(currentUserID(c), uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Tracking link not found"})
		}
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not load tracking link"})
	}
	return link, nil
}

func utmFieldsOf(link *models.TrackingLink) tracking.UTMFields {
	return tracking.UTMFields{
		Source:   link.UTMSource,
		Medium:   link.UTMMedium,
		Campaign: link.UTMCampaign,
		Term:     link.UTMTerm,
		Content:  link.UTMContent,
	}
}
