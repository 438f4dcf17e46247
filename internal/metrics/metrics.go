// Package metrics exposes publication and ingestion counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is what the scheduler, fan-out and ingestion record into.
type MetricsCollector interface {
	RecordPublish(platform string, success bool, kind string)
	RecordRun(duration time.Duration, checked, processed int, skipped bool)
	RecordIngest(source string, newItems, skipped, failed, scheduled int)
	SetBreakerState(platform string, state float64)
}

type Collector struct {
	publishTotal  *prometheus.CounterVec
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	postsChecked  prometheus.Counter
	postsHandled  prometheus.Counter
	ingestItems   *prometheus.CounterVec
	breakerStates *prometheus.GaugeVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosspost_publish_attempts_total",
			Help: "Platform publish attempts by outcome.",
		}, []string{"platform", "result", "kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosspost_scheduler_runs_total",
			Help: "Scheduler runs, split by whether the run was skipped.",
		}, []string{"skipped"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crosspost_scheduler_run_duration_seconds",
			Help:    "Wall time of scheduler runs.",
			Buckets: prometheus.DefBuckets,
		}),
		postsChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crosspost_scheduler_posts_checked_total",
			Help: "Scheduled posts inspected by the scanner.",
		}),
		postsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crosspost_scheduler_posts_processed_total",
			Help: "Due posts fanned out and marked published.",
		}),
		ingestItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosspost_ingest_items_total",
			Help: "Feed items by ingestion outcome.",
		}, []string{"source", "outcome"}),
		breakerStates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crosspost_platform_breaker_state",
			Help: "Circuit breaker state per platform (0 closed, 1 half-open, 2 open).",
		}, []string{"platform"}),
	}

	reg.MustRegister(
		c.publishTotal,
		c.runs,
		c.runDuration,
		c.postsChecked,
		c.postsHandled,
		c.ingestItems,
		c.breakerStates,
	)

	return c
}

func (c *Collector) RecordPublish(platform string, success bool, kind string) {
	result := "failure"
	if success {
		result = "success"
	}
	c.publishTotal.WithLabelValues(platform, result, kind).Inc()
}

func (c *Collector) RecordRun(duration time.Duration, checked, processed int, skipped bool) {
	if skipped {
		c.runs.WithLabelValues("true").Inc()
		return
	}
	c.runs.WithLabelValues("false").Inc()
	c.runDuration.Observe(duration.Seconds())
	c.postsChecked.Add(float64(checked))
	c.postsHandled.Add(float64(processed))
}

func (c *Collector) RecordIngest(source string, newItems, skipped, failed, scheduled int) {
	c.ingestItems.WithLabelValues(source, "new").Add(float64(newItems))
	c.ingestItems.WithLabelValues(source, "skipped").Add(float64(skipped))
	c.ingestItems.WithLabelValues(source, "failed").Add(float64(failed))
	c.ingestItems.WithLabelValues(source, "scheduled").Add(float64(scheduled))
}

func (c *Collector) SetBreakerState(platform string, state float64) {
	c.breakerStates.WithLabelValues(platform).Set(state)
}

// Noop discards everything. Used when metrics are not wired, mostly in tests.
type Noop struct{}

func (Noop) RecordPublish(string, bool, string)      {}
func (Noop) RecordRun(time.Duration, int, int, bool) {}
func (Noop) RecordIngest(string, int, int, int, int) {}
func (Noop) SetBreakerState(string, float64)         {}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
