package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func EnqueueIngest(ctx context.Context, client Enqueuer, payload IngestFeedPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeIngestFeed, taskPayload)

	// Unique keeps a slow sweep from piling up duplicate tasks for one owner.
	_, err = client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Unique(15*time.Minute),
	)
	if err != nil {
		return err
	}

	slog.Info("ingest task enqueued", "owner", payload.Owner, "source", payload.Source)
	return nil
}

// EnqueueIngestForOwners enqueues one task per owner and returns how many were
// accepted. A duplicate task counts as accepted.
func EnqueueIngestForOwners(ctx context.Context, client Enqueuer, owners []string, source string) (int, error) {
	enqueued := 0
	var firstErr error
	for _, owner := range owners {
		err := EnqueueIngest(ctx, client, IngestFeedPayload{Owner: owner, Source: source})
		switch {
		case err == nil, isDuplicate(err):
			enqueued++
		default:
			slog.Error("failed to enqueue ingest task", "owner", owner, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return enqueued, firstErr
}

func isDuplicate(err error) bool {
	return errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict)
}
