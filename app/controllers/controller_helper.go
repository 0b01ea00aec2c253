package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LinkTally/LinkTally/internal/pkg/usercontext"
)

func isLoggedIn(c *fiber.Ctx) bool {
	var fromProtected bool
	if protectedValue := c.Locals(FROM_PROTECTED); protectedValue != nil {
		fromProtected = protectedValue.(bool)
	}

	return fromProtected
}

// ExtractUsername gets the username from Locals (set by middleware)
func ExtractUsername(c *fiber.Ctx) string {
	if userNameValue := c.Locals(USER_NAME); userNameValue != nil {
		if userName, ok := userNameValue.(string); ok {
			return userName
		}
	}

	return ""
}

// currentUserID returns the authenticated user's id, or 0 for anonymous
// requests. Works for both session and API-key authenticated routes since
// both populate the user context.
func currentUserID(c *fiber.Ctx) uint {
	return usercontext.GetUserContext(c).UserID
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
