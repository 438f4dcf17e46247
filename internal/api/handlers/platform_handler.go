package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PlatformHandler struct {
	ps service.PlatformService
}

func NewPlatformHandler(ps service.PlatformService) *PlatformHandler {
	return &PlatformHandler{ps: ps}
}

func (h *PlatformHandler) ConnectAccount(c *fiber.Ctx) error {
	var req transfer.ConnectAccountRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	cred, err := h.ps.Connect(c.UserContext(), GetOwner(c), c.Params("platform"), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"platformKey": cred.PlatformKey,
		"message":     "Account connected",
	})
}

func (h *PlatformHandler) DisconnectAccount(c *fiber.Ctx) error {
	if err := h.ps.Disconnect(c.UserContext(), GetOwner(c), c.Params("platform"), c.Query("brand")); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Account disconnected",
	})
}
