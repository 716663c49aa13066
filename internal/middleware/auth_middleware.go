package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"shopapi/internal/apperr"
	"shopapi/internal/services"
)

// AuthRequired validates the bearer token and stores the decoded identity
// in the request locals for downstream handlers.
func AuthRequired(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing token or invalid format"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		identity, err := tokens.ParseToken(tokenString)
		if err != nil {
			if apperr.Is(err, apperr.CodeTokenExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "token expired"})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid token"})
		}

		c.Locals("user_id", identity.UserID)
		c.Locals("is_admin", identity.IsAdmin)
		return c.Next()
	}
}
