package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shopapi/internal/apperr"
)

// respondError maps service errors onto HTTP responses. Validation errors
// carry the full per-field list alongside the joined message.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		body := fiber.Map{"message": appErr.Error()}
		if len(appErr.Fields) > 0 {
			body["errors"] = appErr.Fields
		}
		return c.Status(appErr.Status).JSON(body)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
}
