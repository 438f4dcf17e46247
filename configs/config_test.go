package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFeedSources(t *testing.T) {
	sources := ParseFeedSources("blog=https://a.example.com/rss, news:globex = https://b.example.com/feed ,broken,empty=")

	assert.Equal(t, []FeedSource{
		{Name: "blog", Brand: "blog", URL: "https://a.example.com/rss"},
		{Name: "news", Brand: "globex", URL: "https://b.example.com/feed"},
	}, sources)
	assert.Empty(t, ParseFeedSources(""))
}

func TestParseBrandRules(t *testing.T) {
	rules := ParseBrandRules("acme:Acme|rocket skates; globex:globex ;nobrand;empty:")

	assert.Equal(t, []BrandRule{
		{Brand: "acme", Keywords: []string{"Acme", "rocket skates"}},
		{Brand: "globex", Keywords: []string{"globex"}},
	}, rules)
}

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SCHEDULER_CLAIM_TTL", "90s")
	t.Setenv("PUBLISH_CONCURRENCY", "4")
	t.Setenv("DERIVE_ENABLED", "true")
	t.Setenv("INGEST_OWNERS", "u1, u2")
	t.Setenv("PLATFORM_RATE_PER_SECOND", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.ClaimTTL)
	assert.Equal(t, 4, cfg.Scheduler.Concurrency)
	assert.True(t, cfg.Ingest.DeriveEnabled)
	assert.Equal(t, []string{"u1", "u2"}, cfg.Ingest.Owners)
	assert.Equal(t, float64(5), cfg.Platforms.RatePerSecond)
	assert.Equal(t, []string{"09:00", "17:00"}, cfg.Ingest.DeriveSlots)
	assert.Equal(t, "default", cfg.DefaultBrand)
}
