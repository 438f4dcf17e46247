package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/models"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

type GuardConfig struct {
	RatePerSecond   float64
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// errTransportFailure marks a result the breaker should count against the platform.
var errTransportFailure = errors.New("transport failure")

// guardedPublisher limits the call rate to a platform and stops calling it for
// a while after consecutive transport failures. Remote rejections do not trip
// the breaker since they say nothing about the platform being reachable.
type guardedPublisher struct {
	Publisher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[models.PublishResult]
}

func NewGuardedPublisher(p Publisher, cfg GuardConfig, m metrics.MetricsCollector) Publisher {
	if m == nil {
		m = metrics.Noop{}
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	platform := p.Platform()
	settings := gobreaker.Settings{
		Name:        platform,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, errTransportFailure)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("platform breaker state changed", "platform", name, "from", from.String(), "to", to.String())
			m.SetBreakerState(name, float64(to))
		},
	}

	return &guardedPublisher{
		Publisher: p,
		limiter:   rate.NewLimiter(limit, 1),
		breaker:   gobreaker.NewCircuitBreaker[models.PublishResult](settings),
	}
}

func (g *guardedPublisher) Publish(ctx context.Context, req PublishRequest) (models.PublishResult, error) {
	platform := g.Platform()

	if err := g.limiter.Wait(ctx); err != nil {
		return models.Failed(platform, models.KindTransport, err.Error()), nil
	}

	var callErr error
	result, err := g.breaker.Execute(func() (models.PublishResult, error) {
		res, err := g.Publisher.Publish(ctx, req)
		if err != nil {
			callErr = err
			return res, nil
		}
		if !res.Success && res.Kind == models.KindTransport {
			return res, errTransportFailure
		}
		return res, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return models.Failed(platform, models.KindTransport, platform+" temporarily unavailable: "+err.Error()), nil
	case callErr != nil:
		return models.PublishResult{}, callErr
	}
	return result, nil
}

// NewPlatformRegistry registers the four platform publishers behind guards.
func NewPlatformRegistry(cfg config.Platforms, client *http.Client, m metrics.MetricsCollector) *PublisherRegistry {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	guard := GuardConfig{
		RatePerSecond:   cfg.RatePerSecond,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}
	return NewPublisherRegistry(
		NewGuardedPublisher(NewLinkedInPublisher(cfg.LinkedInBaseURL, client, NewSafeHTTPClient(cfg.Timeout)), guard, m),
		NewGuardedPublisher(NewFacebookPublisher(cfg.GraphBaseURL, client), guard, m),
		NewGuardedPublisher(NewInstagramPublisher(cfg.GraphBaseURL, client), guard, m),
		NewGuardedPublisher(NewTwitterPublisher(cfg.TwitterBaseURL, client), guard, m),
	)
}
