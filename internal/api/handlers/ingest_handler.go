package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type IngestHandler struct {
	s service.IngestService
}

func NewIngestHandler(s service.IngestService) *IngestHandler {
	return &IngestHandler{s: s}
}

// Ingest runs the feed ingestion synchronously for the caller.
func (h *IngestHandler) Ingest(c *fiber.Ctx) error {
	var req transfer.IngestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse request body",
			})
		}
	}
	if req.Source == "" {
		req.Source = c.Query("source")
	}

	report, err := h.s.Ingest(c.UserContext(), GetOwner(c), req.Source)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(report)
}
