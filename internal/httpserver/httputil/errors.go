package httputil

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/image_studio/internal/apierr"
)

// WriteError standardizes JSON error responses.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// WriteAppError maps a pipeline error to its status code. Untyped errors are
// reported as a generic 500 so internal details never reach the client.
func WriteAppError(c *fiber.Ctx, err error) error {
	appErr, ok := apierr.As(err)
	if !ok {
		return WriteError(c, fiber.StatusInternalServerError, "internal server error")
	}
	return WriteError(c, apierr.StatusOf(appErr), appErr.Message)
}
