// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Ingestion metrics
	EventsIngested    *prometheus.CounterVec
	EventsDuplicate   prometheus.Counter
	EventsLateDropped prometheus.Counter

	// Processing metrics
	EventsProcessed        *prometheus.CounterVec
	EventsSkipped          *prometheus.CounterVec
	PriceObservations      prometheus.Counter
	LiquidityUpdates       *prometheus.CounterVec
	LastProcessedBlock     prometheus.Gauge
	EventProcessingLatency *prometheus.HistogramVec

	// External calls
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Storage metrics
	CommitDuration *prometheus.HistogramVec
	CommitErrors   *prometheus.CounterVec

	// API metrics
	APIRequests *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates metrics registered on reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pool_analytics"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		EventsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_ingested_total",
			Help:      "Total number of ledger events stored to the event log by type",
		}, []string{"event_type"}),
		EventsDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_duplicate_total",
			Help:      "Total number of redelivered events already present in the log",
		}),
		EventsLateDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_late_dropped_total",
			Help:      "Events dropped because their block was already applied",
		}),

		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "events_processed_total",
			Help:      "Total number of events handled by type and outcome",
		}, []string{"event_type", "outcome"}),
		EventsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "events_skipped_total",
			Help:      "Total number of skipped events by reason",
		}, []string{"reason"}),
		PriceObservations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "price_observations_total",
			Help:      "Total number of recorded spot price observations",
		}),
		LiquidityUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "liquidity_updates_total",
			Help:      "Pool valuation recomputations by result",
		}, []string{"result"}),
		LastProcessedBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "last_processed_block",
			Help:      "Block of the last committed event",
		}),
		EventProcessingLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "event_processing_seconds",
			Help:      "Event processing latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"event_type"}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "RPC calls that failed after retries",
		}, []string{"method"}),

		CommitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "commit_duration_seconds",
			Help:      "Entity commit latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		CommitErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "commit_errors_total",
			Help:      "Failed entity commits",
		}, []string{"backend"}),

		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Query API requests by route and status code",
		}, []string{"route", "code"}),

		LastSuccessfulIngestion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEvent records the outcome and latency of one processed event.
func (m *Metrics) RecordEvent(eventType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.EventsProcessed.WithLabelValues(eventType, outcome).Inc()
	m.EventProcessingLatency.WithLabelValues(eventType).Observe(elapsed.Seconds())
}

// RecordSkip counts a skipped event.
func (m *Metrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.EventsSkipped.WithLabelValues(reason).Inc()
}

// RecordPriceObservation counts a recorded observation.
func (m *Metrics) RecordPriceObservation() {
	if m == nil {
		return
	}
	m.PriceObservations.Inc()
}

// RecordLiquidityUpdate counts a valuation attempt; established=false means rejected.
func (m *Metrics) RecordLiquidityUpdate(established bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if established {
		result = "established"
	}
	m.LiquidityUpdates.WithLabelValues(result).Inc()
}

// SetLastProcessedBlock updates the last processed block gauge.
func (m *Metrics) SetLastProcessedBlock(block uint64) {
	if m == nil {
		return
	}
	m.LastProcessedBlock.Set(float64(block))
}

// RecordIngested counts an event stored to the log.
func (m *Metrics) RecordIngested(eventType string) {
	if m == nil {
		return
	}
	m.EventsIngested.WithLabelValues(eventType).Inc()
	m.LastSuccessfulIngestion.SetToCurrentTime()
}

// RecordDuplicate counts a redelivered event.
func (m *Metrics) RecordDuplicate() {
	if m == nil {
		return
	}
	m.EventsDuplicate.Inc()
}

// RecordLateDropped counts an event dropped for arriving after its block.
func (m *Metrics) RecordLateDropped() {
	if m == nil {
		return
	}
	m.EventsLateDropped.Inc()
}

// RecordRPC records RPC call latency and a failure if err is non-nil.
func (m *Metrics) RecordRPC(method string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordCommit records entity commit latency and failures.
func (m *Metrics) RecordCommit(backend string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.CommitDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
	if err != nil {
		m.CommitErrors.WithLabelValues(backend).Inc()
	}
}

// RecordAPIRequest counts one API request.
func (m *Metrics) RecordAPIRequest(route, code string) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(route, code).Inc()
}
