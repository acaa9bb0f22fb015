package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// searchTotal counts searches by the strategy that produced the results.
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricesearch_search_total",
		Help: "Total number of searches by answering strategy",
	}, []string{"strategy"}) // strategy: primary, places, static

	// searchDuration tracks end-to-end search latency.
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricesearch_search_duration_seconds",
		Help:    "Time taken to answer a search",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// resultCount tracks the number of offers returned per search.
	resultCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricesearch_search_results_count",
		Help:    "Number of offers returned per search",
		Buckets: []float64{0, 1, 2, 3, 5, 10},
	})

	// upstreamRequests counts upstream calls by source, operation and outcome.
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricesearch_upstream_requests_total",
		Help: "Total number of upstream requests by source, operation and result",
	}, []string{"source", "op", "result"}) // result: ok, error, empty

	// upstreamDuration tracks upstream call latency.
	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricesearch_upstream_duration_seconds",
		Help:    "Upstream call latency by source and operation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"source", "op"})

	// tokenRefreshes counts client-credentials exchanges.
	tokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricesearch_token_refresh_total",
		Help: "Total number of OAuth token exchanges by result",
	}, []string{"result"})

	// synthesizedPrices counts prices filled in by the synthesizer.
	synthesizedPrices = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricesearch_synthesized_prices_total",
		Help: "Total number of synthesized prices by reason",
	}, []string{"reason"}) // reason: missing_upstream_price, fallback_store

	// breakerState exposes circuit breaker state (0 closed, 1 open, 2 half-open).
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pricesearch_circuit_breaker_state",
		Help: "Circuit breaker state by name (0 closed, 1 open, 2 half-open)",
	}, []string{"name"})
)

// Recorder provides methods to record search metrics.
// A nil *Recorder is valid and records nothing.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordSearch records a completed search.
func (m *Recorder) RecordSearch(strategy string, duration time.Duration, results int) {
	if m == nil {
		return
	}
	searchTotal.WithLabelValues(strategy).Inc()
	searchDuration.Observe(duration.Seconds())
	resultCount.Observe(float64(results))
}

// RecordUpstream records an upstream call.
func (m *Recorder) RecordUpstream(source, op, result string, duration time.Duration) {
	if m == nil {
		return
	}
	upstreamRequests.WithLabelValues(source, op, result).Inc()
	upstreamDuration.WithLabelValues(source, op).Observe(duration.Seconds())
}

// RecordTokenRefresh records a token exchange.
func (m *Recorder) RecordTokenRefresh(success bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !success {
		result = "error"
	}
	tokenRefreshes.WithLabelValues(result).Inc()
}

// RecordSynthesized records a synthesized price.
func (m *Recorder) RecordSynthesized(reason string) {
	if m == nil {
		return
	}
	synthesizedPrices.WithLabelValues(reason).Inc()
}

// RecordBreakerState records the state of a circuit breaker.
func (m *Recorder) RecordBreakerState(name string, state int) {
	if m == nil {
		return
	}
	breakerState.WithLabelValues(name).Set(float64(state))
}
