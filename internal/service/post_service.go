package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

var ErrValidation = errors.New("validation failed")

var validate = validator.New()

type PostService interface {
	Create(ctx context.Context, owner string, req *transfer.CreatePostRequest) (*models.Post, error)
	List(ctx context.Context, owner string) ([]*models.Post, error)
	PostInfo(ctx context.Context, owner, postID string) (*models.Post, error)
}

type postService struct {
	pr  repository.PostRepository
	now func() time.Time
}

func NewPostService(pr repository.PostRepository) PostService {
	return &postService{pr: pr, now: time.Now}
}

func (s *postService) Create(ctx context.Context, owner string, req *transfer.CreatePostRequest) (*models.Post, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: post creation data is nil", ErrValidation)
	}
	if err := validate.Struct(req); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	if strings.TrimSpace(req.Content) == "" && !hasValue(req.PlatformContent) {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrValidation)
	}

	status := req.Status
	if status == "" {
		status = models.PostStatusDraft
		if req.ScheduledFor != nil {
			status = models.PostStatusScheduled
		}
	}

	if status == models.PostStatusScheduled {
		if req.ScheduledFor == nil {
			return nil, fmt.Errorf("%w: scheduled posts need scheduledFor", ErrValidation)
		}
		if len(req.Platforms) == 0 {
			return nil, fmt.Errorf("%w: scheduled posts need at least one platform", ErrValidation)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := s.now()
	post := &models.Post{
		ID:              id.String(),
		Owner:           owner,
		Content:         req.Content,
		PlatformContent: req.PlatformContent,
		Platforms:       dedupe(req.Platforms),
		Media:           req.Media,
		PlatformMedia:   req.PlatformMedia,
		Status:          status,
		CreatedAt:       now,
	}
	if status == models.PostStatusScheduled {
		at := req.ScheduledFor.UTC()
		post.ScheduledFor = &at
	}

	created, err := s.pr.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	return created, nil
}

func (s *postService) List(ctx context.Context, owner string) ([]*models.Post, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	return s.pr.ListByOwner(ctx, owner)
}

func (s *postService) PostInfo(ctx context.Context, owner, postID string) (*models.Post, error) {
	if owner == "" || postID == "" {
		return nil, fmt.Errorf("%w: owner and post id are required", ErrValidation)
	}

	post, err := s.pr.GetByID(ctx, owner, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.ErrPostNotFound
	}
	return post, nil
}

func hasValue(m map[string]string) bool {
	for _, v := range m {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func dedupe(platforms []string) []string {
	seen := make(map[string]struct{}, len(platforms))
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
