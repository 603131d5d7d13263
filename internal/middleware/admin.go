package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// AdminMiddleware allows users with role "admin" (the first registered user)
// and any user listed in adminUserIDs.
func AdminMiddleware(adminUserIDs []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(string)
		if !ok || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		role, _ := c.Locals("user_role").(string)
		if role != "admin" && !IsAdmin(userID, adminUserIDs) {
			log.Printf("🚫 [ADMIN] User %s denied admin access to %s", userID, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		c.Locals("is_admin", true)
		return c.Next()
	}
}

// IsAdmin reports whether userID is in the configured admin list
func IsAdmin(userID string, adminUserIDs []string) bool {
	for _, adminID := range adminUserIDs {
		if adminID == userID {
			return true
		}
	}
	return false
}
