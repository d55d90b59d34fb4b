package middleware

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RequireRole allows the request through only when the claims set by
// AuthMiddleware carry role. Role names compare case-insensitively.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if len(claims.Roles) == 0 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: No roles assigned",
			})
		}

		if !slices.ContainsFunc(claims.Roles, func(r string) bool { return strings.EqualFold(r, role) }) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: " + role + " role required",
			})
		}

		return c.Next()
	}
}
