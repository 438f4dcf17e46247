package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/models"
)

type PublishService interface {
	// Publish attempts every platform of the post once and returns one result
	// per platform, in the post's platform order. It never fails as a whole.
	Publish(ctx context.Context, post *models.Post) []models.PublishResult
}

type publishService struct {
	brands      BrandService
	registry    *PublisherRegistry
	metrics     metrics.MetricsCollector
	concurrency int
}

func NewPublishService(brands BrandService, registry *PublisherRegistry, m metrics.MetricsCollector, concurrency int) PublishService {
	if m == nil {
		m = metrics.Noop{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &publishService{brands: brands, registry: registry, metrics: m, concurrency: concurrency}
}

func (s *publishService) Publish(ctx context.Context, post *models.Post) []models.PublishResult {
	brand := s.brands.DetectBrand(post.Content)
	results := make([]models.PublishResult, len(post.Platforms))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.concurrency)

	for i, platform := range post.Platforms {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, platform string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			res := s.publishOne(ctx, post, platform, brand)
			res.Platform = platform
			results[i] = res

			s.metrics.RecordPublish(platform, res.Success, string(res.Kind))
			if !res.Success {
				slog.Info("platform publish failed", "post_id", post.ID, "platform", platform, "kind", res.Kind, "error", res.Error)
			}
		}(i, platform)
	}

	wg.Wait()
	return results
}

func (s *publishService) publishOne(ctx context.Context, post *models.Post, platform, brand string) (res models.PublishResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("publisher panicked", "post_id", post.ID, "platform", platform, "panic", r)
			res = models.Failed(platform, models.KindInternal, fmt.Sprintf("publisher panic: %v", r))
		}
	}()

	publisher, ok := s.registry.Get(platform)
	if !ok {
		return models.Failed(platform, models.KindPrecondition, models.ErrMsgUnsupportedPlatform)
	}

	cred, err := s.brands.Resolve(ctx, post.Owner, platform, brand)
	if err != nil {
		return models.Failed(platform, models.KindInternal, "credential lookup failed: "+err.Error())
	}
	if cred == nil {
		return models.Failed(platform, models.KindNotConnected, models.ErrMsgNotConnected)
	}

	media := post.MediaFor(platform)
	if publisher.RequiresMedia() && media == "" {
		return models.Failed(platform, models.KindPrecondition, models.ErrMsgRequiresMedia)
	}

	res, err = publisher.Publish(ctx, PublishRequest{
		Credential: cred,
		Text:       post.TextFor(platform),
		Media:      media,
	})
	if err != nil {
		return models.Failed(platform, models.KindInternal, err.Error())
	}
	return res
}
