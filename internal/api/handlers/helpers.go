package handlers

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentpilot/internal/service"
)

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return fiber.StatusNotFound, "NotFound"
	case errors.Is(err, service.ErrNoAssets):
		return fiber.StatusBadRequest, "NoAssets"
	case errors.Is(err, service.ErrInvalidSchedule):
		return fiber.StatusBadRequest, "InvalidSchedule"
	case errors.Is(err, service.ErrInvalidUpload):
		return fiber.StatusBadRequest, "InvalidUpload"
	default:
		return fiber.StatusInternalServerError, "Internal"
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		slog.Error(err.Error(), "path", c.Path())
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

// GetOperator returns the operator set by the auth middleware, if any.
func GetOperator(c *fiber.Ctx) string {
	op, _ := c.Locals("operator").(string)
	return op
}
