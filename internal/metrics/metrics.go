// Package metrics provides the Prometheus registry for the signal pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orb"

var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	ScanCyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_cycles_total",
		Help:      "Total number of scan cycles by status",
	}, []string{"status"})
	SignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_total",
		Help:      "Signals by direction and stage (candidate, suppressed, emitted)",
	}, []string{"direction", "stage"})
	FetchErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_errors_total",
		Help:      "Bar fetch failures by source and error code",
	}, []string{"source", "code"})
	DeliveryFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_failures_total",
		Help:      "Total number of failed notification deliveries",
	})
	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bar_cache_lookups_total",
		Help:      "Bar cache lookups by result (hit, miss)",
	}, []string{"result"})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of HTTP circuit breaker trips",
	})
)

// Gauge metrics
var (
	LedgerSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_keys",
		Help:      "Number of dedup keys marked for the current trading day",
	})
	SnapshotsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "range_snapshots",
		Help:      "Number of opening range snapshots available for the current day",
	})
)

// Histogram metrics
var (
	ScanCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_cycle_duration_seconds",
		Help:      "Duration of scan cycles in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})
	FetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_latency_seconds",
		Help:      "Latency of bar fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(ScanCyclesTotal)
		registry.MustRegister(SignalsTotal)
		registry.MustRegister(FetchErrorsTotal)
		registry.MustRegister(DeliveryFailuresTotal)
		registry.MustRegister(CacheLookupsTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)

		registry.MustRegister(LedgerSize)
		registry.MustRegister(SnapshotsLoaded)

		registry.MustRegister(ScanCycleDuration)
		registry.MustRegister(FetchLatency)

		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestTradesTotal)
		registry.MustRegister(BacktestWinRate)
		registry.MustRegister(BacktestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordScanCycle records a finished scan cycle.
func RecordScanCycle(status string, durationSeconds float64) {
	ScanCyclesTotal.WithLabelValues(status).Inc()
	ScanCycleDuration.Observe(durationSeconds)
}

// RecordSignal records a signal at a pipeline stage.
func RecordSignal(direction, stage string) {
	SignalsTotal.WithLabelValues(direction, stage).Inc()
}

// RecordFetch records a bar fetch outcome. An empty code means success.
func RecordFetch(source, code string, durationSeconds float64) {
	FetchLatency.WithLabelValues(source).Observe(durationSeconds)
	if code != "" {
		FetchErrorsTotal.WithLabelValues(source, code).Inc()
	}
}

// RecordDeliveryFailure records a failed notification.
func RecordDeliveryFailure() {
	DeliveryFailuresTotal.Inc()
}

// RecordCacheLookup records a bar cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// UpdateLedgerSize updates the ledger gauge.
func UpdateLedgerSize(n int) {
	LedgerSize.Set(float64(n))
}

// UpdateSnapshotsLoaded updates the snapshot gauge.
func UpdateSnapshotsLoaded(n int) {
	SnapshotsLoaded.Set(float64(n))
}
