package queue

import (
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	errFor map[string]error
	owners []string
	opts   [][]asynq.Option
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	var payload IngestFeedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return nil, err
	}
	if err := f.errFor[payload.Owner]; err != nil {
		return nil, err
	}
	f.owners = append(f.owners, payload.Owner)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{Type: task.Type(), Queue: "default"}, nil
}

func TestEnqueueIngestForOwners(t *testing.T) {
	enq := &fakeEnqueuer{errFor: map[string]error{
		"dup":    asynq.ErrDuplicateTask,
		"broken": errors.New("redis unavailable"),
	}}

	n, err := EnqueueIngestForOwners(context.Background(), enq, []string{"u1", "dup", "broken", "u2"}, "blog")
	assert.Equal(t, 3, n)
	assert.ErrorContains(t, err, "redis unavailable")
	assert.Equal(t, []string{"u1", "u2"}, enq.owners)
	assert.Len(t, enq.opts[0], 3)
}

type fakeIngest struct {
	owner, source string
	err           error
}

func (f *fakeIngest) Ingest(_ context.Context, owner, source string) (*models.IngestReport, error) {
	f.owner, f.source = owner, source
	if f.err != nil {
		return nil, f.err
	}
	return &models.IngestReport{New: 1}, nil
}

func ingestTask(t *testing.T, payload IngestFeedPayload) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(TaskTypeIngestFeed, raw)
}

func TestHandleIngestTask(t *testing.T) {
	is := &fakeIngest{}
	q := NewQueue(is)

	require.NoError(t, q.HandleIngestTask(context.Background(), ingestTask(t, IngestFeedPayload{Owner: "u1", Source: "blog"})))
	assert.Equal(t, "u1", is.owner)
	assert.Equal(t, "blog", is.source)
}

func TestHandleIngestTaskRetryPolicy(t *testing.T) {
	ctx := context.Background()

	err := NewQueue(&fakeIngest{}).HandleIngestTask(ctx, asynq.NewTask(TaskTypeIngestFeed, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = NewQueue(&fakeIngest{err: service.ErrUnknownSource}).HandleIngestTask(ctx, ingestTask(t, IngestFeedPayload{Owner: "u1", Source: "x"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = NewQueue(&fakeIngest{err: errors.New("db down")}).HandleIngestTask(ctx, ingestTask(t, IngestFeedPayload{Owner: "u1"}))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
