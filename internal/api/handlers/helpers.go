package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
)

// GetOwner returns the account id the auth middleware stored for the request.
func GetOwner(c *fiber.Ctx) string {
	owner, _ := c.Locals("user_id").(string)
	return owner
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrUnknownSource):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrPostNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrPostNotPublished),
		errors.Is(err, service.ErrNothingToRetry),
		errors.Is(err, service.ErrAlreadyRetried):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
