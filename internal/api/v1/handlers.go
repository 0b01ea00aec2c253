package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/LinkTally/LinkTally/app/controllers"
	"github.com/LinkTally/LinkTally/internal/pkg/middleware"
)

// APIServer carries the public v1 surface. Every route except ping sits
// behind the API key middleware.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the ping response payload.
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// PostTrackPurchase ingests an externally reported purchase and attributes
// it to one of the key owner's tracking links.
func (s *APIServer) PostTrackPurchase(c *fiber.Ctx) error {
	return controllers.HandleTrackPurchase(c)
}

// GetLinks returns the key owner's tracking links with revenue totals.
func (s *APIServer) GetLinks(c *fiber.Ctx) error {
	return controllers.HandleListTrackingLinks(c)
}

// GetRevenueEntries returns a page of the key owner's revenue entries.
func (s *APIServer) GetRevenueEntries(c *fiber.Ctx) error {
	return controllers.HandleListRevenueEntries(c)
}

// RegisterHandlers mounts the v1 routes on the given router group.
func RegisterHandlers(r fiber.Router, s *APIServer) {
	r.Get("/ping", s.GetPing)

	protected := r.Group("", middleware.APIKeyAuthMiddleware())
	protected.Post("/track/purchase", s.PostTrackPurchase)
	protected.Get("/links", s.GetLinks)
	protected.Get("/revenue-entries", s.GetRevenueEntries)
}
