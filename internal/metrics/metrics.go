// Package metrics exposes Prometheus counters for the HTTP surface, card
// generation and review recording.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and middleware depend on.
type Recorder interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
	RecordGenerationAttempt(model, outcome string)
	RecordSessionRecorded()
	RecordCardReviewInsertFailure()
	RecordRateLimited(scope string)
}

// Generation attempt outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeCallError  = "call_error"
	OutcomeParseError = "parse_error"
	OutcomeNoCards    = "no_cards"
	OutcomeSkipped    = "skipped"
)

type Collector struct {
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	generationAttempts  *prometheus.CounterVec
	sessionsRecorded    prometheus.Counter
	reviewInsertFailure prometheus.Counter
	rateLimited         *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revi_http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revi_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		generationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revi_generation_attempts_total",
			Help: "Card generation attempts by model and outcome.",
		}, []string{"model", "outcome"}),
		sessionsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revi_review_sessions_recorded_total",
			Help: "Review sessions persisted.",
		}),
		reviewInsertFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revi_card_review_insert_failures_total",
			Help: "Card review batches that failed to persist after their session was saved.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revi_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.generationAttempts,
		c.sessionsRecorded,
		c.reviewInsertFailure,
		c.rateLimited,
	)
	return c
}

func (c *Collector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordGenerationAttempt(model, outcome string) {
	c.generationAttempts.WithLabelValues(model, outcome).Inc()
}

func (c *Collector) RecordSessionRecorded() {
	c.sessionsRecorded.Inc()
}

func (c *Collector) RecordCardReviewInsertFailure() {
	c.reviewInsertFailure.Inc()
}

func (c *Collector) RecordRateLimited(scope string) {
	c.rateLimited.WithLabelValues(scope).Inc()
}

// Handler serves the registry for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordGenerationAttempt(string, string)                {}
func (Nop) RecordSessionRecorded()                                {}
func (Nop) RecordCardReviewInsertFailure()                        {}
func (Nop) RecordRateLimited(string)                              {}
