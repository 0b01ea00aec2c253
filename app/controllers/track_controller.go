package controllers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/app/repository"
	"github.com/LinkTally/LinkTally/internal/pkg/attribution"
	"github.com/LinkTally/LinkTally/internal/pkg/database"
	"github.com/LinkTally/LinkTally/internal/pkg/revenue"
	"github.com/LinkTally/LinkTally/internal/pkg/statistics"
)

type trackPurchaseRequest struct {
	CampaignID  string            `json:"campaign_id"`
	UTMCampaign string            `json:"utm_campaign"`
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	CustomerID  string            `json:"customer_id"`
	Metadata    map[string]string `json:"metadata"`
}

// HandleTrackPurchase is the direct-ingest endpoint behind the API key
// middleware. It accepts the capture payload of the browser collaborator:
// an explicit campaign id takes priority over utm_campaign. Calls are
// appended as they arrive; unlike the webhook path there is no upstream
// redelivery to dedup against.
func HandleTrackPurchase(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid API key"})
	}

	var req trackPurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "amount must be greater than zero"})
	}
	if req.CampaignID == "" && req.UTMCampaign == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "campaign_id or utm_campaign is required"})
	}

	// Direct ingest matches on the campaign signals only; the remaining UTM
	// fields in the capture payload carry no priority here.
	signals := attribution.Signals{
		CampaignID:  req.CampaignID,
		UTMCampaign: req.UTMCampaign,
	}

	matcher := attribution.NewMatcher(repository.GetGlobalFactory().GetTrackingLinkRepository())
	link, err := matcher.Match(userID, signals)
	if err != nil {
		if errors.Is(err, attribution.ErrNoSignal) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "no usable attribution signal"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Attribution lookup failed"})
	}
	if link == nil {
		signal := req.CampaignID
		if signal == "" {
			signal = req.UTMCampaign
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": fmt.Sprintf("no tracking link matches campaign %q", signal)})
	}

	description := "API-reported purchase"
	if req.CustomerID != "" {
		description = fmt.Sprintf("API-reported purchase from %s", req.CustomerID)
	}

	svc := revenue.NewServiceFromDB(database.GetDB())
	entry, _, err := svc.RecordAutomatic(c.Context(), revenue.AutomaticEntry{
		UserID:         userID,
		TrackingLinkID: link.ID,
		AmountCents:    models.AmountToCents(req.Amount),
		Currency:       req.Currency,
		Description:    description,
		Processor:      models.RevenueProcessorAPI,
	})
	if err != nil {
		if errors.Is(err, revenue.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not record revenue"})
	}

	go statistics.UpdateStatisticsCache()

	return c.JSON(fiber.Map{
		"success":          true,
		"revenue_entry_id": entry.ID,
		"campaign":         link.Title,
		"amount":           entry.Amount(),
	})
}
