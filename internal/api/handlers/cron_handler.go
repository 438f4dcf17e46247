package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/queue"
)

type SchedulerRunner interface {
	Run(ctx context.Context, now time.Time) (*models.RunReport, error)
}

type CronHandler struct {
	scheduler SchedulerRunner
	enq       queue.Enqueuer
	owners    []string
	now       func() time.Time
}

func NewCronHandler(scheduler SchedulerRunner, enq queue.Enqueuer, owners []string) *CronHandler {
	return &CronHandler{scheduler: scheduler, enq: enq, owners: owners, now: time.Now}
}

func (h *CronHandler) Publish(c *fiber.Ctx) error {
	report, err := h.scheduler.Run(c.UserContext(), h.now())
	if err != nil {
		slog.Error("cron publish failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(report)
}

func (h *CronHandler) Ingest(c *fiber.Ctx) error {
	if h.enq == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "task queue is not configured",
		})
	}

	source := c.Query("source")
	enqueued, err := queue.EnqueueIngestForOwners(c.UserContext(), h.enq, h.owners, source)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":  false,
			"enqueued": enqueued,
			"error":    err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success":  true,
		"enqueued": enqueued,
	})
}
