package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
)

var ErrUnknownSource = errors.New("no feed source matches the filter")

type IngestService interface {
	// Ingest pulls the configured feeds (or the ones whose name or brand equals
	// sourceFilter) for owner. Item failures are reported, not returned.
	Ingest(ctx context.Context, owner, sourceFilter string) (*models.IngestReport, error)
}

type IngestDeps struct {
	Feeds     FeedService
	Items     repository.IngestedItemRepository
	Posts     repository.PostRepository
	Media     MediaStore
	Generator ContentGenerator
	Metrics   metrics.MetricsCollector
	Now       func() time.Time
}

type ingestService struct {
	cfg      config.Ingest
	deps     IngestDeps
	slots    []slotOfDay
	location *time.Location
}

type slotOfDay struct {
	hour, minute int
}

func NewIngestService(cfg config.Ingest, deps IngestDeps) IngestService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	loc := time.UTC
	if cfg.DeriveTimezone != "" {
		if l, err := time.LoadLocation(cfg.DeriveTimezone); err == nil {
			loc = l
		} else {
			slog.Warn("unknown derive timezone, using UTC", "timezone", cfg.DeriveTimezone)
		}
	}

	return &ingestService{cfg: cfg, deps: deps, slots: parseSlots(cfg.DeriveSlots), location: loc}
}

func parseSlots(raw []string) []slotOfDay {
	var slots []slotOfDay
	for _, s := range raw {
		t, err := time.Parse("15:04", strings.TrimSpace(s))
		if err != nil {
			slog.Warn("ignoring invalid derive slot", "slot", s)
			continue
		}
		slots = append(slots, slotOfDay{hour: t.Hour(), minute: t.Minute()})
	}
	if len(slots) == 0 {
		slots = []slotOfDay{{9, 0}, {17, 0}}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].hour != slots[j].hour {
			return slots[i].hour < slots[j].hour
		}
		return slots[i].minute < slots[j].minute
	})
	return slots
}

// slotCursor walks the times-of-day sequence starting the day after now.
type slotCursor struct {
	slots []slotOfDay
	day   time.Time
	idx   int
}

func newSlotCursor(now time.Time, loc *time.Location, slots []slotOfDay) *slotCursor {
	local := now.In(loc)
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return &slotCursor{slots: slots, day: tomorrow}
}

func (c *slotCursor) next() time.Time {
	s := c.slots[c.idx]
	at := time.Date(c.day.Year(), c.day.Month(), c.day.Day(), s.hour, s.minute, 0, 0, c.day.Location())
	c.idx++
	if c.idx == len(c.slots) {
		c.idx = 0
		c.day = c.day.AddDate(0, 0, 1)
	}
	return at
}

func (s *ingestService) Ingest(ctx context.Context, owner, sourceFilter string) (*models.IngestReport, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}

	sources := s.matchSources(sourceFilter)
	if len(sources) == 0 {
		if sourceFilter != "" {
			return nil, ErrUnknownSource
		}
		return &models.IngestReport{}, nil
	}

	now := s.deps.Now()
	cursor := newSlotCursor(now, s.location, s.slots)
	report := &models.IngestReport{}

	for _, source := range sources {
		before := *report
		s.ingestSource(ctx, owner, source, now, cursor, report)
		s.deps.Metrics.RecordIngest(source.Name,
			report.New-before.New,
			report.Skipped-before.Skipped,
			report.Failed-before.Failed,
			report.Scheduled-before.Scheduled,
		)
	}

	slog.Info("ingestion finished",
		"owner", owner,
		"new", report.New,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"scheduled", report.Scheduled,
	)
	return report, nil
}

func (s *ingestService) matchSources(filter string) []config.FeedSource {
	if filter == "" {
		return s.cfg.Sources
	}
	var out []config.FeedSource
	for _, src := range s.cfg.Sources {
		if strings.EqualFold(src.Name, filter) || strings.EqualFold(sourceBrand(src), filter) {
			out = append(out, src)
		}
	}
	return out
}

func sourceBrand(src config.FeedSource) string {
	if src.Brand != "" {
		return src.Brand
	}
	return src.Name
}

func (s *ingestService) ingestSource(ctx context.Context, owner string, source config.FeedSource, now time.Time, cursor *slotCursor, report *models.IngestReport) {
	fetchCtx := ctx
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	items, err := s.deps.Feeds.Fetch(fetchCtx, source)
	if err != nil {
		slog.Warn("feed fetch failed", "source", source.Name, "error", err)
		report.Failed++
		report.Errors = append(report.Errors, models.IngestError{Source: source.Name, Error: err.Error()})
		return
	}

	for _, item := range items {
		s.ingestItem(ctx, owner, source, item, now, cursor, report)
	}
}

func (s *ingestService) ingestItem(ctx context.Context, owner string, source config.FeedSource, item models.FeedItem, now time.Time, cursor *slotCursor, report *models.IngestReport) {
	externalID := ExternalID(item)
	fail := func(err error) {
		report.Failed++
		report.Errors = append(report.Errors, models.IngestError{Source: source.Name, ExternalID: externalID, Error: err.Error()})
	}

	exists, err := s.deps.Items.Exists(ctx, owner, externalID)
	if err != nil {
		fail(fmt.Errorf("check existing item: %w", err))
		return
	}
	if exists {
		report.Skipped++
		return
	}

	ingested := &models.IngestedItem{
		Owner:             owner,
		ExternalID:        externalID,
		SourceName:        source.Name,
		Brand:             sourceBrand(source),
		Title:             item.Title,
		Content:           item.Content,
		Link:              item.Link,
		OriginPublishedAt: item.PublishedAt,
		CreatedAt:         now,
	}
	if item.MediaURL != "" {
		ingested.MediaURL = s.storeMedia(ctx, owner, item.MediaURL)
	}

	inserted, err := s.deps.Items.Create(ctx, ingested)
	if err != nil {
		fail(fmt.Errorf("persist item: %w", err))
		return
	}
	if !inserted {
		report.Skipped++
		return
	}
	report.New++

	if s.cfg.DeriveEnabled && s.deps.Generator != nil {
		s.derivePosts(ctx, ingested, source, now, cursor, report)
	}
}

// storeMedia copies the item image into the media store. Any failure is logged
// and the item is kept without media.
func (s *ingestService) storeMedia(ctx context.Context, owner, mediaURL string) string {
	data, mimeType, ext, err := s.deps.Feeds.FetchMedia(ctx, mediaURL, s.cfg.MaxMediaBytes)
	if err != nil {
		slog.Warn("media fetch failed, continuing without media", "url", mediaURL, "error", err)
		return ""
	}
	if s.deps.Media == nil {
		return mediaURL
	}

	filename := path.Base(strings.SplitN(mediaURL, "?", 2)[0])
	if path.Ext(filename) == "" {
		filename += "." + ext
	}
	stored, err := s.deps.Media.Upload(ctx, owner, data, filename, mimeType)
	if err != nil {
		slog.Warn("media upload failed, continuing without media", "url", mediaURL, "error", err)
		return ""
	}
	return stored
}

func (s *ingestService) derivePosts(ctx context.Context, item *models.IngestedItem, source config.FeedSource, now time.Time, cursor *slotCursor, report *models.IngestReport) {
	derivationError := func(err error) {
		slog.Warn("post derivation failed", "external_id", item.ExternalID, "error", err)
		report.Errors = append(report.Errors, models.IngestError{Source: source.Name, ExternalID: item.ExternalID, Error: err.Error()})
	}

	sourceText := item.Title
	if item.Content != "" {
		sourceText += "\n\n" + item.Content
	}
	if item.Link != "" {
		sourceText += "\n\n" + item.Link
	}

	if len(s.cfg.DerivePlatforms) == 0 {
		derivationError(errors.New("no platforms configured for derived posts"))
		return
	}

	drafts, err := s.deps.Generator.Generate(ctx, sourceText, s.cfg.DeriveCount)
	if err != nil {
		derivationError(fmt.Errorf("generate posts: %w", err))
		return
	}

	for _, draft := range drafts {
		id, err := uuid.NewV7()
		if err != nil {
			derivationError(err)
			return
		}
		at := cursor.next()
		post := &models.Post{
			ID:           id.String(),
			Owner:        item.Owner,
			Content:      draft,
			Platforms:    append([]string(nil), s.cfg.DerivePlatforms...),
			Media:        item.MediaURL,
			Status:       models.PostStatusScheduled,
			ScheduledFor: &at,
			CreatedAt:    now,
		}
		if _, err := s.deps.Posts.Create(ctx, post); err != nil {
			derivationError(fmt.Errorf("schedule derived post: %w", err))
			continue
		}
		report.Scheduled++
	}
}

// ExternalID is the feed GUID, else the link, else a hash of title and publish time.
func ExternalID(item models.FeedItem) string {
	if item.GUID != "" {
		return item.GUID
	}
	if item.Link != "" {
		return item.Link
	}
	published := ""
	if item.PublishedAt != nil {
		published = item.PublishedAt.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(item.Title + "|" + published))
	return hex.EncodeToString(sum[:])
}
