// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"straddle-lab/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
// All Record/Set methods are no-ops on a nil *Metrics.
type Metrics struct {
	// Ingestion metrics
	TicksReceived    prometheus.Counter
	TicksStored      prometheus.Counter
	TicksDropped     *prometheus.CounterVec
	IngestionErrors  *prometheus.CounterVec
	TickBufferSize   prometheus.Gauge
	FeedReconnects   prometheus.Counter
	FeedMessageBytes prometheus.Histogram

	// Backtest metrics
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	CyclesSimulated *prometheus.CounterVec
	LegExits        *prometheus.CounterVec
	CyclePnlPercent prometheus.Histogram

	// Store metrics
	StoreQueryDuration *prometheus.HistogramVec
	StoreQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulRun       prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "straddle_lab"
	}
	f := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		TicksReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ticks_received_total",
			Help:      "Total number of LTP ticks decoded from the feed",
		}),
		TicksStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ticks_stored_total",
			Help:      "Total number of LTP ticks written to the store",
		}),
		TicksDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ticks_dropped_total",
			Help:      "Total number of ticks dropped before storage by reason",
		}, []string{"reason"}),
		IngestionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by stage",
		}, []string{"stage"}),
		TickBufferSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tick_buffer_size",
			Help:      "Current number of ticks waiting to be flushed",
		}),
		FeedReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "feed_reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),
		FeedMessageBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "feed_message_bytes",
			Help:      "Size of feed messages in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 6),
		}),

		// Backtest metrics
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of day runs by underlying and status",
		}, []string{"underlying", "status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Duration of day runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"underlying"}),
		CyclesSimulated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "cycles_simulated_total",
			Help:      "Total number of closed cycles by underlying",
		}, []string{"underlying"}),
		LegExits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "leg_exits_total",
			Help:      "Total number of leg exits by leg type and reason",
		}, []string{"leg", "reason"}),
		CyclePnlPercent: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "cycle_pnl_percent",
			Help:      "Combined PnL percent of closed cycles",
			Buckets:   prometheus.LinearBuckets(-50, 10, 11),
		}),

		// Store metrics
		StoreQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Duration of store queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		StoreQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_errors_total",
			Help:      "Total number of store query errors",
		}, []string{"backend", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful tick flush",
		}),
		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful day run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint serving g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordRun records a finished day run.
func (m *Metrics) RecordRun(underlying, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(underlying, status).Inc()
	m.RunDuration.WithLabelValues(underlying).Observe(d.Seconds())
	if status == StatusOK {
		m.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordCycle records a closed cycle and its two leg exits.
func (m *Metrics) RecordCycle(underlying string, c *domain.Cycle) {
	if m == nil || c == nil {
		return
	}
	m.CyclesSimulated.WithLabelValues(underlying).Inc()
	m.LegExits.WithLabelValues(string(domain.LegTypeCE), string(c.CE.ExitReason())).Inc()
	m.LegExits.WithLabelValues(string(domain.LegTypePE), string(c.PE.ExitReason())).Inc()
	m.CyclePnlPercent.Observe(c.CombinedPnlPercent.InexactFloat64())
}

// RecordStoreQuery records a store call.
func (m *Metrics) RecordStoreQuery(backend, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StoreQueryDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
	if err != nil {
		m.StoreQueryErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordTicksReceived adds n decoded ticks.
func (m *Metrics) RecordTicksReceived(n int) {
	if m == nil {
		return
	}
	m.TicksReceived.Add(float64(n))
}

// RecordTicksStored adds n persisted ticks.
func (m *Metrics) RecordTicksStored(n int) {
	if m == nil {
		return
	}
	m.TicksStored.Add(float64(n))
	m.LastSuccessfulIngestion.SetToCurrentTime()
}

// RecordTicksDropped adds n ticks dropped for reason.
func (m *Metrics) RecordTicksDropped(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.TicksDropped.WithLabelValues(reason).Add(float64(n))
}

// RecordIngestionError counts an ingestion failure at stage.
func (m *Metrics) RecordIngestionError(stage string) {
	if m == nil {
		return
	}
	m.IngestionErrors.WithLabelValues(stage).Inc()
}

// RecordReconnect counts a websocket reconnect.
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.FeedReconnects.Inc()
}

// RecordFeedMessage observes the size of a raw feed message.
func (m *Metrics) RecordFeedMessage(size int) {
	if m == nil {
		return
	}
	m.FeedMessageBytes.Observe(float64(size))
}

// SetTickBufferSize sets the pending tick gauge.
func (m *Metrics) SetTickBufferSize(n int) {
	if m == nil {
		return
	}
	m.TickBufferSize.Set(float64(n))
}

// Run status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)
