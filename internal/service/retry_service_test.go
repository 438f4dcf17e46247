package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPublished(t *testing.T, posts repository.PostRepository, history repository.PostingHistoryRepository, attempts map[string][]bool) *models.Post {
	t.Helper()
	ctx := context.Background()
	published := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	post := &models.Post{
		ID:          "p1",
		Owner:       "u1",
		Content:     "hello",
		Platforms:   []string{"linkedin", "facebook", "twitter"},
		Status:      models.PostStatusPublished,
		PublishedAt: &published,
	}
	_, err := posts.Create(ctx, post)
	require.NoError(t, err)

	for _, platform := range post.Platforms {
		for _, ok := range attempts[platform] {
			_, err := history.Create(ctx, &models.PostingHistory{Owner: "u1", PostID: "p1", Platform: platform, Success: ok})
			require.NoError(t, err)
		}
	}
	return post
}

func TestRetryFailedSchedulesFailedPlatforms(t *testing.T) {
	ctx := context.Background()
	posts := repository.NewMemoryPostRepository()
	history := repository.NewMemoryPostingHistoryRepository()
	seedPublished(t, posts, history, map[string][]bool{
		"linkedin": {true},
		"facebook": {false},
		"twitter":  {false, true},
	})

	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	retry, err := NewRetryService(posts, history).RetryFailed(ctx, "u1", "p1", now)
	require.NoError(t, err)

	assert.NotEqual(t, "p1", retry.ID)
	assert.Equal(t, []string{"facebook"}, retry.Platforms)
	assert.Equal(t, models.PostStatusScheduled, retry.Status)
	assert.Equal(t, "hello", retry.Content)
	require.NotNil(t, retry.ScheduledFor)
	assert.True(t, retry.ScheduledFor.Equal(now))
	assert.Nil(t, retry.PublishedAt)
	assert.Equal(t, "p1", retry.RetryOf)

	original, err := posts.GetByID(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, original.Status)
}

func TestRetryFailedErrors(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	posts := repository.NewMemoryPostRepository()
	history := repository.NewMemoryPostingHistoryRepository()
	svc := NewRetryService(posts, history)

	_, err := svc.RetryFailed(ctx, "u1", "missing", now)
	assert.ErrorIs(t, err, models.ErrPostNotFound)

	_, err = posts.Create(ctx, &models.Post{ID: "draft", Owner: "u1", Content: "x", Status: models.PostStatusDraft})
	require.NoError(t, err)
	_, err = svc.RetryFailed(ctx, "u1", "draft", now)
	assert.ErrorIs(t, err, ErrPostNotPublished)

	seedPublished(t, posts, history, map[string][]bool{"linkedin": {true}, "facebook": {true}})
	_, err = svc.RetryFailed(ctx, "u1", "p1", now)
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestRetryFailedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	posts := repository.NewMemoryPostRepository()
	history := repository.NewMemoryPostingHistoryRepository()
	seedPublished(t, posts, history, map[string][]bool{"linkedin": {true}, "facebook": {false}})
	svc := NewRetryService(posts, history)
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	first, err := svc.RetryFailed(ctx, "u1", "p1", now)
	require.NoError(t, err)

	_, err = svc.RetryFailed(ctx, "u1", "p1", now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrAlreadyRetried)

	scheduled, err := posts.ListByStatus(ctx, models.PostStatusScheduled)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, first.ID, scheduled[0].ID)
}

func TestRetryFailedOnlyOnceConcurrently(t *testing.T) {
	ctx := context.Background()
	posts := repository.NewMemoryPostRepository()
	history := repository.NewMemoryPostingHistoryRepository()
	seedPublished(t, posts, history, map[string][]bool{"twitter": {false}})
	svc := NewRetryService(posts, history)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RetryFailed(ctx, "u1", "p1", time.Now()); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrAlreadyRetried)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	scheduled, err := posts.ListByStatus(ctx, models.PostStatusScheduled)
	require.NoError(t, err)
	assert.Len(t, scheduled, 1)
}
