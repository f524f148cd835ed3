package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the agent.
type Metrics struct {
	// Tick loop metrics
	TicksTotal     prometheus.Counter
	TicksDropped   prometheus.Counter
	TickDuration   prometheus.Histogram
	EmptySnapshots prometheus.Counter
	WakeRetries    prometheus.Counter

	// Session metrics
	SessionsOpened prometheus.Counter
	SessionsClosed prometheus.Counter
	LiveSessions   prometheus.Gauge

	// Persistence metrics
	SaveErrors *prometheus.CounterVec
	CloudSyncs prometheus.Counter

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSEvents      prometheus.Counter

	startTime time.Time
}

// NewMetrics creates a metrics collector registered on the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perfguard_ticks_total",
			Help: "Total number of completed polling ticks",
		}),
		TicksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perfguard_ticks_dropped_total",
			Help: "Ticks dropped because the previous tick was still running",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "perfguard_tick_duration_seconds",
			Help:    "Polling tick duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2},
		}),
		EmptySnapshots: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perfguard_empty_snapshots_total",
			Help: "Process snapshots treated as unknown because they were empty",
		}),
		WakeRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perfguard_wake_retries_total",
			Help: "Snapshot retries performed during wake recovery",
		}),

		SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perfguard_sessions_opened_total",
			Help: "Total number of sessions started",
		}),
		SessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perfguard_sessions_closed_total",
			Help: "Total number of sessions closed",
		}),
		LiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "perfguard_sessions_live",
			Help: "Number of in-progress sessions",
		}),

		SaveErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perfguard_save_errors_total",
			Help: "Persistence failures by store",
		}, []string{"store"}),
		CloudSyncs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perfguard_cloud_syncs_total",
			Help: "Completed cloud synchronizations",
		}),

		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perfguard_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perfguard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "path"}),

		WSConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "perfguard_ws_connections",
			Help: "Number of connected WebSocket clients",
		}),
		WSEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perfguard_ws_events_total",
			Help: "Events broadcast to WebSocket clients",
		}),
	}
}

// Uptime returns time since the collector was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
