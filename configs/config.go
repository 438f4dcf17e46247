package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type AzureOpenAI struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Timeout    time.Duration
}

// FeedSource is one configured syndication feed. Name doubles as the brand tag
// unless Brand is set explicitly.
type FeedSource struct {
	Name  string
	Brand string
	URL   string
}

// BrandRule maps a brand to the keywords that identify it in post text.
type BrandRule struct {
	Brand    string
	Keywords []string
}

type Platforms struct {
	LinkedInBaseURL string
	GraphBaseURL    string
	TwitterBaseURL  string
	Timeout         time.Duration
	RatePerSecond   float64
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type Scheduler struct {
	CronSpec       string
	MaxPostsPerRun int
	ClaimTTL       time.Duration
	RunLockTTL     time.Duration
	Concurrency    int
}

type Ingest struct {
	Sources         []FeedSource
	Owners          []string
	CronSpec        string
	DeriveEnabled   bool
	DeriveCount     int
	DerivePlatforms []string
	DeriveSlots     []string
	DeriveTimezone  string
	MaxMediaBytes   int64
	FetchTimeout    time.Duration
}

type Config struct {
	Port         string
	LogLevel     string
	PostgresURI  string
	RedisURI     string
	FrontendURL  string
	SecretKey    string
	CookieName   string
	CronSecret   string
	DefaultBrand string
	BrandRules   []BrandRule
	R2           R2
	AzureOpenAI  AzureOpenAI
	Platforms    Platforms
	Scheduler    Scheduler
	Ingest       Ingest
}

func LoadConfig() *Config {
	return &Config{
		Port:         getEnv("PORT", "3000"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		PostgresURI:  getEnv("POSTGRES_URI", ""),
		RedisURI:     getEnv("REDIS_URI", ""),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:    getEnv("SECRET_KEY", ""),
		CookieName:   getEnv("COOKIE_NAME", "crosspost_session"),
		CronSecret:   getEnv("CRON_SECRET", ""),
		DefaultBrand: getEnv("DEFAULT_BRAND", "default"),
		BrandRules:   ParseBrandRules(getEnv("BRAND_KEYWORDS", "")),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		AzureOpenAI: AzureOpenAI{
			Endpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			APIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
			Deployment: getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
			APIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-06-01"),
			Timeout:    getEnvDuration("AZURE_OPENAI_TIMEOUT", 60*time.Second),
		},
		Platforms: Platforms{
			LinkedInBaseURL: getEnv("LINKEDIN_API_URL", "https://api.linkedin.com"),
			GraphBaseURL:    getEnv("GRAPH_API_URL", "https://graph.facebook.com/v21.0"),
			TwitterBaseURL:  getEnv("TWITTER_API_URL", "https://api.twitter.com"),
			Timeout:         getEnvDuration("PLATFORM_TIMEOUT", 30*time.Second),
			RatePerSecond:   getEnvFloat("PLATFORM_RATE_PER_SECOND", 5),
			BreakerFailures: uint32(getEnvInt("PLATFORM_BREAKER_FAILURES", 5)),
			BreakerTimeout:  getEnvDuration("PLATFORM_BREAKER_TIMEOUT", 2*time.Minute),
		},
		Scheduler: Scheduler{
			CronSpec:       getEnv("SCHEDULER_CRON", ""),
			MaxPostsPerRun: getEnvInt("SCHEDULER_MAX_POSTS_PER_RUN", 0),
			ClaimTTL:       getEnvDuration("SCHEDULER_CLAIM_TTL", 10*time.Minute),
			RunLockTTL:     getEnvDuration("SCHEDULER_RUN_LOCK_TTL", 5*time.Minute),
			Concurrency:    getEnvInt("PUBLISH_CONCURRENCY", 1),
		},
		Ingest: Ingest{
			Sources:         ParseFeedSources(getEnv("FEED_SOURCES", "")),
			Owners:          getEnvList("INGEST_OWNERS"),
			CronSpec:        getEnv("INGEST_CRON", ""),
			DeriveEnabled:   getEnvBool("DERIVE_ENABLED", false),
			DeriveCount:     getEnvInt("DERIVE_COUNT", 4),
			DerivePlatforms: getEnvListDefault("DERIVE_PLATFORMS", []string{"linkedin", "facebook"}),
			DeriveSlots:     getEnvListDefault("DERIVE_SLOTS", []string{"09:00", "17:00"}),
			DeriveTimezone:  getEnv("DERIVE_TIMEZONE", "UTC"),
			MaxMediaBytes:   int64(getEnvInt("INGEST_MAX_MEDIA_BYTES", 10*1024*1024)),
			FetchTimeout:    getEnvDuration("INGEST_FETCH_TIMEOUT", 20*time.Second),
		},
	}
}

// ParseFeedSources reads "name=url" or "name:brand=url" pairs separated by commas.
func ParseFeedSources(raw string) []FeedSource {
	var sources []FeedSource
	for _, entry := range splitTrim(raw, ",") {
		name, url, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(url) == "" {
			continue
		}
		name = strings.TrimSpace(name)
		brand := name
		if n, b, found := strings.Cut(name, ":"); found {
			name, brand = strings.TrimSpace(n), strings.TrimSpace(b)
		}
		sources = append(sources, FeedSource{Name: name, Brand: brand, URL: strings.TrimSpace(url)})
	}
	return sources
}

// ParseBrandRules reads "brand:kw1|kw2;brand2:kw3". Rule order is kept, first match wins.
func ParseBrandRules(raw string) []BrandRule {
	var rules []BrandRule
	for _, entry := range splitTrim(raw, ";") {
		brand, kws, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		keywords := splitTrim(kws, "|")
		if strings.TrimSpace(brand) == "" || len(keywords) == 0 {
			continue
		}
		rules = append(rules, BrandRule{Brand: strings.TrimSpace(brand), Keywords: keywords})
	}
	return rules
}

func splitTrim(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvList(key string) []string {
	return splitTrim(os.Getenv(key), ",")
}

func getEnvListDefault(key string, defaultValue []string) []string {
	if v := getEnvList(key); len(v) > 0 {
		return v
	}
	return defaultValue
}
