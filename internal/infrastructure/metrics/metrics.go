// Package metrics exposes Prometheus instruments for the playground hub.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "playground"

// Completion outcomes.
const (
	OutcomeAwarded          = "awarded"
	OutcomeAlreadyCompleted = "already_completed"
	OutcomeRejected         = "rejected"
	OutcomeError            = "error"
)

// Reset reasons.
const (
	ResetMonthly = "monthly"
	ResetManual  = "manual"
)

// Ranking sources.
const (
	RankingFromCache    = "cache"
	RankingFromStore    = "store"
	RankingFromInFlight = "shared"
)

// Metrics holds every instrument. The zero value is not usable; use New.
type Metrics struct {
	gatherer prometheus.Gatherer

	Completions      *prometheus.CounterVec
	XPAwarded        *prometheus.CounterVec
	Resets           *prometheus.CounterVec
	RankingRequests  *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
	HTTPLatency      *prometheus.HistogramVec
	BreakerState     *prometheus.GaugeVec
}

// New registers the instruments on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the instruments on reg.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,

		Completions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Scenario completion requests by outcome.",
		}, []string{"outcome"}),

		XPAwarded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_awarded_total",
			Help:      "XP awarded by difficulty tier.",
		}, []string{"tier"}),

		Resets: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_resets_total",
			Help:      "Progress resets by reason.",
		}, []string{"reason"}),

		RankingRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_requests_total",
			Help:      "Power Ranking reads by source.",
		}, []string{"source"}),

		OperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of progress and ranking operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"name"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveOperation records the latency of operation since start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Completion records a completion outcome and, for awards, the XP.
func (m *Metrics) Completion(outcome, tier string, xp int) {
	m.Completions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeAwarded && xp > 0 {
		m.XPAwarded.WithLabelValues(tier).Add(float64(xp))
	}
}

// Reset records a progress reset.
func (m *Metrics) Reset(reason string) {
	m.Resets.WithLabelValues(reason).Inc()
}

// RankingRead records where a ranking response came from.
func (m *Metrics) RankingRead(source string) {
	m.RankingRequests.WithLabelValues(source).Inc()
}

// SetBreakerState publishes a breaker state as its numeric value.
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// ObserveHTTP records one served request. route is the matched pattern.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
