// middleware/auth.go
package middleware

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "user_id"

// UserContextMiddleware reads the identity the gateway resolved for the
// request. Every route behind it requires a numeric X-User-ID.
func UserContextMiddleware(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get("X-User-ID")
		userID, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || userID <= 0 {
			logger.Warn("[USER_CTX] X-User-ID missing or invalid", "path", c.Path(), "value", raw)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "NOT_AUTHORIZED",
					"message": "User is not authorized for this action.",
				},
			})
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the caller set by UserContextMiddleware, 0 outside it.
func UserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(userIDKey).(int64)
	return id
}
