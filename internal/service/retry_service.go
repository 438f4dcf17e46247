package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
)

var (
	ErrPostNotPublished = errors.New("post has not been published yet")
	ErrNothingToRetry   = errors.New("post has no failed platforms")
	ErrAlreadyRetried   = errors.New("post has already been retried")
)

// RetryService re-schedules the platforms whose last attempt failed. It is kept
// apart from the scheduler, which makes one attempt per post and moves on.
// A post is retried at most once; a failed retry is retried through its own id.
type RetryService interface {
	RetryFailed(ctx context.Context, owner, postID string, now time.Time) (*models.Post, error)
}

type retryService struct {
	posts   repository.PostRepository
	history repository.PostingHistoryRepository
}

func NewRetryService(posts repository.PostRepository, history repository.PostingHistoryRepository) RetryService {
	return &retryService{posts: posts, history: history}
}

func (s *retryService) RetryFailed(ctx context.Context, owner, postID string, now time.Time) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, owner, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.ErrPostNotFound
	}
	if post.Status != models.PostStatusPublished {
		return nil, ErrPostNotPublished
	}

	attempts, err := s.history.ListByPostID(ctx, owner, postID)
	if err != nil {
		return nil, fmt.Errorf("error loading posting history: %w", err)
	}

	latest := make(map[string]bool, len(attempts))
	for _, a := range attempts {
		latest[a.Platform] = a.Success
	}

	var failed []string
	for _, platform := range post.Platforms {
		if ok, attempted := latest[platform]; attempted && !ok {
			failed = append(failed, platform)
		}
	}
	if len(failed) == 0 {
		return nil, ErrNothingToRetry
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	retry := post.Clone()
	retry.ID = id.String()
	retry.RetryOf = post.ID
	retry.Platforms = failed
	retry.Status = models.PostStatusScheduled
	retry.ScheduledFor = &now
	retry.PublishedAt = nil
	retry.ClaimedUntil = nil
	retry.CreatedAt = now

	created, err := s.posts.Create(ctx, retry)
	if errors.Is(err, models.ErrRetryExists) {
		return nil, ErrAlreadyRetried
	}
	if err != nil {
		return nil, fmt.Errorf("error scheduling retry: %w", err)
	}
	return created, nil
}
