package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/service"
)

func (q *Queue) HandleIngestTask(ctx context.Context, task *asynq.Task) error {
	var payload IngestFeedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	report, err := q.is.Ingest(ctx, payload.Owner, payload.Source)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSource) || errors.Is(err, service.ErrValidation) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	slog.Info("ingest task done",
		"owner", payload.Owner,
		"source", payload.Source,
		"new", report.New,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"scheduled", report.Scheduled,
	)
	return nil
}
