package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpub/internal/service"
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrQueueDisabled):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError sends notFound or failure as plain text for 404 and 500, and
// a JSON error body for everything else.
func respondError(c *fiber.Ctx, err error, notFound, failure string) error {
	status := errorStatus(err)
	switch status {
	case fiber.StatusNotFound:
		return c.Status(status).SendString(notFound)
	case fiber.StatusInternalServerError:
		slog.Error(failure, "path", c.Path(), "error", err)
		return c.Status(status).SendString(failure)
	default:
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}
