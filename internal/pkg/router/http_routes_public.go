package router

import (
	"github.com/LinkTally/LinkTally/app/controllers"
	"github.com/LinkTally/LinkTally/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/", loggedInMiddleware, controllers.HandleStart)

	// Short tracking-link redirects
	app.Get("/l/:code", loggedInMiddleware, controllers.HandleShortRedirect)

	// Auth
	app.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	app.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Payment processor webhooks (signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}
