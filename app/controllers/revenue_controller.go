package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/internal/pkg/database"
	"github.com/LinkTally/LinkTally/internal/pkg/revenue"
	"github.com/LinkTally/LinkTally/internal/pkg/statistics"
)

type manualEntryRequest struct {
	TrackingLinkUUID string  `json:"tracking_link_uuid"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Description      string  `json:"description"`
	EntryDate        string  `json:"entry_date"` // YYYY-MM-DD, optional
}

// HandleCreateRevenueEntry appends a manually reported revenue entry to one
// of the caller's links.
func HandleCreateRevenueEntry(c *fiber.Ctx) error {
	var req manualEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	link, err := ownedLinkFromParamUUID(c, req.TrackingLinkUUID)
	if err != nil {
		return err
	}

	var date time.Time
	if req.EntryDate != "" {
		date, err = time.Parse("2006-01-02", req.EntryDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "entry_date must be YYYY-MM-DD"})
		}
	}
	if req.Amount < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "amount must not be negative"})
	}

	svc := revenue.NewServiceFromDB(database.GetDB())
	entry, err := svc.RecordManual(c.Context(), revenue.ManualEntry{
		UserID:         currentUserID(c),
		TrackingLinkID: link.ID,
		AmountCents:    models.AmountToCents(req.Amount),
		Currency:       req.Currency,
		Description:    req.Description,
		EntryDate:      date,
	})
	if err != nil {
		if errors.Is(err, revenue.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not record revenue"})
	}

	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(entry)
}

// HandleListRevenueEntries returns a page of the caller's revenue entries,
// optionally filtered to one tracking link.
func HandleListRevenueEntries(c *fiber.Ctx) error {
	var linkID uint
	if uuid := c.Query("tracking_link_uuid"); uuid != "" {
		link, err := ownedLinkFromParamUUID(c, uuid)
		if err != nil {
			return err
		}
		linkID = link.ID
	}

	svc := revenue.NewServiceFromDB(database.GetDB())
	entries, err := svc.ListEntries(c.Context(), currentUserID(c), linkID, c.QueryInt("offset", 0), c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not load revenue entries"})
	}

	out := make([]fiber.Map, 0, len(entries))
	for i := range entries {
		out = append(out, fiber.Map{
			"entry":  entries[i],
			"amount": models.FormatAmount(entries[i].AmountCents),
		})
	}

	return c.JSON(fiber.Map{"entries": out})
}

// HandleRevenueSummary returns attributed revenue totals per tracking link
// plus the overall total, in minor units.
func HandleRevenueSummary(c *fiber.Ctx) error {
	svc := revenue.NewServiceFromDB(database.GetDB())
	sums, err := svc.SumByLink(c.Context(), currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not load revenue summary"})
	}

	var total int64
	perLink := make(map[uint]int64, len(sums))
	for id, cents := range sums {
		perLink[id] = cents
		total += cents
	}

	return c.JSON(fiber.Map{
		"total_cents": total,
		"total":       models.FormatAmount(total),
		"by_link":     perLink,
	})
}

// ownedLinkFromParamUUID is ownedLinkFromParam for a UUID that arrives in a
// body or query instead of the route.
func ownedLinkFromParamUUID(c *fiber.Ctx, uuid string) (*models.TrackingLink, error) {
	if uuid == "" {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "tracking_link_uuid missing"})
	}
	return lookupOwnedLink(c, uuid)
}
