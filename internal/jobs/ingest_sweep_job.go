package job

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/queue"
)

// IngestSweepJob queues a feed ingestion for every configured owner.
type IngestSweepJob struct {
	enq    queue.Enqueuer
	owners []string
}

func NewIngestSweepJob(enq queue.Enqueuer, owners []string) *IngestSweepJob {
	return &IngestSweepJob{enq: enq, owners: owners}
}

func (j *IngestSweepJob) Sweep() {
	if len(j.owners) == 0 {
		return
	}
	n, err := queue.EnqueueIngestForOwners(context.Background(), j.enq, j.owners, "")
	if err != nil {
		slog.Error("ingest sweep incomplete", "enqueued", n, "owners", len(j.owners), "error", err)
		return
	}
	slog.Info("ingest sweep enqueued", "enqueued", n)
}
