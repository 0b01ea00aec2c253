package router

import (
	"github.com/LinkTally/LinkTally/internal/pkg/middleware"
	"github.com/LinkTally/LinkTally/internal/pkg/oauth"
	"github.com/LinkTally/LinkTally/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerProtectedRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func loggedInMiddleware(c *fiber.Ctx) error {
	// UserContextMiddleware already set all user context; this is a named
	// pass-through kept for route readability.
	return c.Next()
}
