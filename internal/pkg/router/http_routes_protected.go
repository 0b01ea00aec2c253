package router

import (
	"github.com/LinkTally/LinkTally/app/controllers"
	"github.com/LinkTally/LinkTally/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// Session-authenticated dashboard routes. These return JSON 401 instead of
// redirecting, since the dashboard is a single-page client.
func (h HttpRouter) registerProtectedRoutes(app *fiber.App) {
	group := app.Group("/api", cors.New(), middleware.RequireAPISessionAuth)

	// Tracking links
	group.Post("/links", controllers.HandleCreateTrackingLink)
	group.Get("/links", controllers.HandleListTrackingLinks)
	group.Get("/links/:uuid", controllers.HandleGetTrackingLink)
	group.Put("/links/:uuid", controllers.HandleUpdateTrackingLink)
	group.Delete("/links/:uuid", controllers.HandleDeleteTrackingLink)

	// Revenue
	group.Post("/revenue-entries", controllers.HandleCreateRevenueEntry)
	group.Get("/revenue-entries", controllers.HandleListRevenueEntries)
	group.Get("/revenue/summary", controllers.HandleRevenueSummary)

	// API keys
	group.Post("/keys", controllers.HandleAPIKeyGenerate)
	group.Get("/keys", controllers.HandleAPIKeyList)

	// Processor connections
	group.Get("/connections", controllers.HandlePaymentConnectionList)
	group.Post("/connections/:id/disconnect", controllers.HandlePaymentConnectionDisconnect)

	// Stripe Connect OAuth (session, not API key)
	app.Get("/stripe/connect", middleware.RequireAuth, controllers.HandleStripeConnect)
	app.Get("/stripe/callback", middleware.RequireAuth, controllers.HandleStripeCallback)
}
