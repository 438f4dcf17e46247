package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeeds struct {
	items    map[string][]models.FeedItem
	fetchErr map[string]error
	mediaErr error
}

func (f *fakeFeeds) Fetch(_ context.Context, source config.FeedSource) ([]models.FeedItem, error) {
	if err := f.fetchErr[source.Name]; err != nil {
		return nil, err
	}
	return f.items[source.Name], nil
}

func (f *fakeFeeds) FetchMedia(_ context.Context, _ string, _ int64) ([]byte, string, string, error) {
	if f.mediaErr != nil {
		return nil, "", "", f.mediaErr
	}
	return pngHeader, "image/png", "png", nil
}

type fakeGenerator struct {
	err   error
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, count int) ([]string, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("derived %d", i+1)
	}
	return out, nil
}

type fakeMediaStore struct {
	err     error
	uploads []string
}

func (m *fakeMediaStore) Upload(_ context.Context, owner string, _ []byte, filename, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.uploads = append(m.uploads, owner+"/"+filename)
	return "https://media.example.com/" + owner + "/" + filename, nil
}

var ingestNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

type ingestFixture struct {
	svc   IngestService
	feeds *fakeFeeds
	items repository.IngestedItemRepository
	posts repository.PostRepository
	gen   *fakeGenerator
	media *fakeMediaStore
}

func newIngestFixture(cfg config.Ingest) *ingestFixture {
	f := &ingestFixture{
		feeds: &fakeFeeds{items: map[string][]models.FeedItem{}, fetchErr: map[string]error{}},
		items: repository.NewMemoryIngestedItemRepository(),
		posts: repository.NewMemoryPostRepository(),
		gen:   &fakeGenerator{},
		media: &fakeMediaStore{},
	}
	f.svc = NewIngestService(cfg, IngestDeps{
		Feeds:     f.feeds,
		Items:     f.items,
		Posts:     f.posts,
		Media:     f.media,
		Generator: f.gen,
		Now:       func() time.Time { return ingestNow },
	})
	return f
}

func blogSource() config.Ingest {
	return config.Ingest{
		Sources: []config.FeedSource{{Name: "blog", Brand: "acme", URL: "https://blog.example.com/rss"}},
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(blogSource())
	f.feeds.items["blog"] = []models.FeedItem{{GUID: "g1", Title: "First", Link: "https://blog.example.com/1"}}

	report, err := f.svc.Ingest(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.New)
	assert.Zero(t, report.Skipped)

	report, err = f.svc.Ingest(ctx, "u1", "")
	require.NoError(t, err)
	assert.Zero(t, report.New)
	assert.Equal(t, 1, report.Skipped)

	stored, err := f.items.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "g1", stored[0].ExternalID)
	assert.Equal(t, "acme", stored[0].Brand)
	assert.Equal(t, "blog", stored[0].SourceName)

	// Another owner sees the same item as new.
	report, err = f.svc.Ingest(ctx, "u2", "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.New)
}

func TestIngestStoresMedia(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(blogSource())
	f.feeds.items["blog"] = []models.FeedItem{{GUID: "g1", Title: "Pic", MediaURL: "https://blog.example.com/img/cover.png?w=800"}}

	_, err := f.svc.Ingest(ctx, "u1", "")
	require.NoError(t, err)

	stored, err := f.items.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "https://media.example.com/u1/cover.png", stored[0].MediaURL)
	assert.Equal(t, []string{"u1/cover.png"}, f.media.uploads)
}

func TestIngestMediaFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(blogSource())
	f.feeds.mediaErr = ErrUnsupportedMedia
	f.feeds.items["blog"] = []models.FeedItem{{GUID: "g1", Title: "Pic", MediaURL: "https://blog.example.com/file.pdf"}}

	report, err := f.svc.Ingest(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.New)
	assert.Zero(t, report.Failed)

	stored, _ := f.items.ListByOwner(ctx, "u1")
	require.Len(t, stored, 1)
	assert.Empty(t, stored[0].MediaURL)
}

func TestIngestFetchFailureCountsOnce(t *testing.T) {
	cfg := config.Ingest{Sources: []config.FeedSource{
		{Name: "down", URL: "https://down.example.com/rss"},
		{Name: "up", URL: "https://up.example.com/rss"},
	}}
	f := newIngestFixture(cfg)
	f.feeds.fetchErr["down"] = errors.New("connection refused")
	f.feeds.items["up"] = []models.FeedItem{{GUID: "a"}, {GUID: "b"}}

	report, err := f.svc.Ingest(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.New)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "down", report.Errors[0].Source)
}

func TestIngestSourceFilter(t *testing.T) {
	cfg := config.Ingest{Sources: []config.FeedSource{
		{Name: "blog", Brand: "acme", URL: "https://a.example.com/rss"},
		{Name: "news", Brand: "globex", URL: "https://b.example.com/rss"},
	}}
	f := newIngestFixture(cfg)
	f.feeds.items["blog"] = []models.FeedItem{{GUID: "a"}}
	f.feeds.items["news"] = []models.FeedItem{{GUID: "b"}}

	report, err := f.svc.Ingest(context.Background(), "u1", "GLOBEX")
	require.NoError(t, err)
	assert.Equal(t, 1, report.New)

	_, err = f.svc.Ingest(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = f.svc.Ingest(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIngestDerivesScheduledPosts(t *testing.T) {
	ctx := context.Background()
	cfg := blogSource()
	cfg.DeriveEnabled = true
	cfg.DeriveCount = 3
	cfg.DerivePlatforms = []string{"linkedin", "facebook"}
	cfg.DeriveSlots = []string{"17:00", "09:00"}
	cfg.DeriveTimezone = "UTC"

	f := newIngestFixture(cfg)
	f.feeds.items["blog"] = []models.FeedItem{{GUID: "g1", Title: "Launch", Content: "We shipped", Link: "https://blog.example.com/launch"}}

	report, err := f.svc.Ingest(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.New)
	assert.Equal(t, 3, report.Scheduled)

	posts, err := f.posts.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, posts, 3)

	want := []time.Time{
		time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 11, 17, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
	}
	for i, p := range posts {
		assert.Equal(t, models.PostStatusScheduled, p.Status)
		assert.Equal(t, []string{"linkedin", "facebook"}, p.Platforms)
		require.NotNil(t, p.ScheduledFor)
		assert.True(t, want[i].Equal(*p.ScheduledFor), "slot %d: got %s", i, p.ScheduledFor)
		assert.Equal(t, fmt.Sprintf("derived %d", i+1), p.Content)
	}
}

func TestIngestGenerationFailureKeepsItem(t *testing.T) {
	cfg := blogSource()
	cfg.DeriveEnabled = true
	cfg.DeriveCount = 2
	cfg.DerivePlatforms = []string{"linkedin"}

	f := newIngestFixture(cfg)
	f.gen.err = errors.New("quota exceeded")
	f.feeds.items["blog"] = []models.FeedItem{{GUID: "g1", Title: "Launch"}}

	report, err := f.svc.Ingest(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.New)
	assert.Zero(t, report.Scheduled)
	assert.Zero(t, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Error, "quota exceeded")
	assert.Equal(t, "g1", report.Errors[0].ExternalID)
}

func TestIngestSkipsDerivationForKnownItems(t *testing.T) {
	cfg := blogSource()
	cfg.DeriveEnabled = true
	cfg.DeriveCount = 1
	cfg.DerivePlatforms = []string{"linkedin"}

	f := newIngestFixture(cfg)
	f.feeds.items["blog"] = []models.FeedItem{{GUID: "g1", Title: "Launch"}}

	_, err := f.svc.Ingest(context.Background(), "u1", "")
	require.NoError(t, err)
	_, err = f.svc.Ingest(context.Background(), "u1", "")
	require.NoError(t, err)

	assert.Equal(t, 1, f.gen.calls)
}

func TestSlotCursorUsesTimezone(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)

	// 02:00 UTC on the 10th is still the 9th at UTC-5.
	now := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	cursor := newSlotCursor(now, loc, parseSlots([]string{"08:30"}))

	first := cursor.next()
	assert.True(t, first.Equal(time.Date(2025, 3, 10, 8, 30, 0, 0, loc)), "got %s", first)
	second := cursor.next()
	assert.True(t, second.Equal(time.Date(2025, 3, 11, 8, 30, 0, 0, loc)), "got %s", second)
}

func TestParseSlotsDefaults(t *testing.T) {
	assert.Equal(t, []slotOfDay{{9, 0}, {17, 0}}, parseSlots(nil))
	assert.Equal(t, []slotOfDay{{9, 0}, {17, 0}}, parseSlots([]string{"bogus"}))
	assert.Equal(t, []slotOfDay{{7, 15}, {12, 0}}, parseSlots([]string{"12:00", " 07:15 "}))
}

func TestExternalID(t *testing.T) {
	published := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, "guid-1", ExternalID(models.FeedItem{GUID: "guid-1", Link: "https://x"}))
	assert.Equal(t, "https://x", ExternalID(models.FeedItem{Link: "https://x"}))

	a := ExternalID(models.FeedItem{Title: "Hello", PublishedAt: &published})
	b := ExternalID(models.FeedItem{Title: "Hello", PublishedAt: &published})
	c := ExternalID(models.FeedItem{Title: "Hello"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
