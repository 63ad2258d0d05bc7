// Package metrics exposes Prometheus instrumentation for backtest runs and
// market data fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "strategylab"

// Run outcomes used for the status label.
const (
	StatusOK               = "ok"
	StatusInvalid          = "invalid"
	StatusInsufficientData = "insufficient_data"
	StatusCanceled         = "canceled"
	StatusUpstreamError    = "upstream_error"
	StatusPersistenceError = "persistence_error"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Backtest runs by strategy and outcome",
		},
		[]string{"strategy", "status"},
	)

	tradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_total",
			Help:      "Simulated round-trip trades by strategy",
		},
		[]string{"strategy"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock time of a complete backtest run",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"strategy"},
	)

	barsProcessed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "bars_processed",
			Help:      "Number of bars simulated per run",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 10),
		},
	)

	runsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_in_flight",
			Help:      "Backtest runs currently executing",
		},
	)

	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_total",
			Help:      "Bar fetches by source and outcome",
		},
		[]string{"source", "status"},
	)
)

// RunStarted marks a run as in flight. The returned func records the outcome
// and duration and must be called exactly once.
func RunStarted(strategy string) func(status string) {
	start := time.Now()
	runsInFlight.Inc()
	return func(status string) {
		runsInFlight.Dec()
		runsTotal.WithLabelValues(strategy, status).Inc()
		runDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	}
}

// ObserveSimulation records the size and trade count of a finished simulation.
func ObserveSimulation(strategy string, bars, trades int) {
	barsProcessed.Observe(float64(bars))
	tradesTotal.WithLabelValues(strategy).Add(float64(trades))
}

// ObserveFetch counts a market data request.
func ObserveFetch(source string, err error) {
	status := StatusOK
	if err != nil {
		status = StatusUpstreamError
	}
	fetchTotal.WithLabelValues(source, status).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
