package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
)

// RunLocker keeps two scheduler runs from overlapping across processes.
type RunLocker interface {
	Acquire(ctx context.Context) (release func(), acquired bool, err error)
}

type SchedulerConfig struct {
	MaxPostsPerRun int
	ClaimTTL       time.Duration
}

type PublishScheduler struct {
	pr      repository.PostRepository
	ph      repository.PostingHistoryRepository
	ps      service.PublishService
	lock    RunLocker
	metrics metrics.MetricsCollector
	cfg     SchedulerConfig
}

func NewPublishScheduler(
	pr repository.PostRepository,
	ph repository.PostingHistoryRepository,
	ps service.PublishService,
	lock RunLocker,
	m metrics.MetricsCollector,
	cfg SchedulerConfig) *PublishScheduler {
	if m == nil {
		m = metrics.Noop{}
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 10 * time.Minute
	}
	return &PublishScheduler{
		pr:      pr,
		ph:      ph,
		ps:      ps,
		lock:    lock,
		metrics: m,
		cfg:     cfg,
	}
}

// Run publishes every scheduled post that is due at now. Only a failure to list
// scheduled posts is returned as an error; per-post failures land in the report.
func (s *PublishScheduler) Run(ctx context.Context, now time.Time) (*models.RunReport, error) {
	start := time.Now()
	report := &models.RunReport{
		Success:    true,
		ExecutedAt: now,
		Results:    []models.PostRunResult{},
	}

	if s.lock != nil {
		release, acquired, err := s.lock.Acquire(ctx)
		switch {
		case err != nil:
			slog.Warn("scheduler run lock unavailable, relying on post claims", "error", err)
		case !acquired:
			slog.Info("another scheduler run is in progress, skipping")
			report.Skipped = true
			s.metrics.RecordRun(time.Since(start), 0, 0, true)
			return report, nil
		default:
			defer release()
		}
	}

	posts, err := s.pr.ListByStatus(ctx, models.PostStatusScheduled)
	if err != nil {
		slog.Error("failed to list scheduled posts", "error", err)
		return nil, fmt.Errorf("list scheduled posts: %w", err)
	}
	report.TotalScheduledPostsChecked = len(posts)

	for _, post := range posts {
		if !post.IsDue(now) {
			continue
		}
		if s.cfg.MaxPostsPerRun > 0 && report.Processed >= s.cfg.MaxPostsPerRun {
			slog.Info("scheduler run cap reached, leaving the rest for the next run", "cap", s.cfg.MaxPostsPerRun)
			break
		}

		claimed, err := s.pr.Claim(ctx, post.Owner, post.ID, now, now.Add(s.cfg.ClaimTTL))
		if err != nil {
			slog.Error("failed to claim post", "post_id", post.ID, "error", err)
			report.Results = append(report.Results, models.PostRunResult{
				PostID:  post.ID,
				Owner:   post.Owner,
				Results: []models.PublishResult{},
				Error:   "claim failed: " + err.Error(),
			})
			continue
		}
		if !claimed {
			slog.Info("post claimed by another run, skipping", "post_id", post.ID)
			continue
		}

		report.Results = append(report.Results, s.processPost(ctx, post, now))
		report.Processed++
	}

	s.metrics.RecordRun(time.Since(start), report.TotalScheduledPostsChecked, report.Processed, false)
	slog.Info("scheduler run finished",
		"checked", report.TotalScheduledPostsChecked,
		"processed", report.Processed,
		"duration", time.Since(start).String(),
	)
	return report, nil
}

func (s *PublishScheduler) processPost(ctx context.Context, post *models.Post, now time.Time) models.PostRunResult {
	result := models.PostRunResult{PostID: post.ID, Owner: post.Owner}
	result.Results, result.Error = s.fanOut(ctx, post)

	// An attempt was made, so the post is done whatever the outcome.
	publishedAt := now
	post.Status = models.PostStatusPublished
	post.PublishedAt = &publishedAt
	post.ClaimedUntil = nil
	if err := s.pr.Replace(ctx, post); err != nil {
		slog.Error("failed to mark post published", "post_id", post.ID, "error", err)
		if result.Error != "" {
			result.Error += "; "
		}
		result.Error += "status update failed: " + err.Error()
	}

	s.recordHistory(ctx, post, result.Results, now)
	return result
}

func (s *PublishScheduler) fanOut(ctx context.Context, post *models.Post) (results []models.PublishResult, errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("fan-out panicked", "post_id", post.ID, "panic", r)
			results = []models.PublishResult{}
			errMsg = fmt.Sprintf("fan-out panic: %v", r)
		}
	}()
	return s.ps.Publish(ctx, post), ""
}

func (s *PublishScheduler) recordHistory(ctx context.Context, post *models.Post, results []models.PublishResult, now time.Time) {
	if s.ph == nil {
		return
	}
	for _, res := range results {
		entry := &models.PostingHistory{
			Owner:        post.Owner,
			PostID:       post.ID,
			Platform:     res.Platform,
			Success:      res.Success,
			RemotePostID: res.PostID,
			ErrorMessage: res.Error,
			CreatedAt:    now,
		}
		if _, err := s.ph.Create(ctx, entry); err != nil {
			slog.Warn("failed to save posting history", "post_id", post.ID, "platform", res.Platform, "error", err)
		}
	}
}

// RunNow is the cron entry point.
func (s *PublishScheduler) RunNow() {
	if _, err := s.Run(context.Background(), time.Now()); err != nil {
		slog.Error("scheduled publish run failed", "error", err)
	}
}
