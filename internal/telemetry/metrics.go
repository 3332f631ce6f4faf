package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency across every route.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "sentrywatch",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

var IngestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentrywatch",
		Subsystem: "ingest",
		Name:      "requests_total",
		Help:      "Total number of ingested request-log records.",
	},
	[]string{"api_id", "suspicious"},
)

var DetectorDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "sentrywatch",
		Subsystem: "detect",
		Name:      "detector_duration_seconds",
		Help:      "Per-detector evaluation duration in seconds.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	},
	[]string{"detector"},
)

var DetectorErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentrywatch",
		Subsystem: "detect",
		Name:      "detector_errors_total",
		Help:      "Total number of detector-internal failures, caught and treated as no detection.",
	},
	[]string{"detector"},
)

var AlertsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentrywatch",
		Subsystem: "alerts",
		Name:      "created_total",
		Help:      "Total number of alerts created, by severity.",
	},
	[]string{"severity", "kind"},
)

var NotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentrywatch",
		Subsystem: "alerts",
		Name:      "notifications_total",
		Help:      "Total number of notification dispatch attempts, by channel and outcome.",
	},
	[]string{"channel", "status"},
)

var NotificationsThrottledTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentrywatch",
		Subsystem: "alerts",
		Name:      "throttled_total",
		Help:      "Total number of notifications suppressed by the throttle cache.",
	},
	[]string{"alert_kind"},
)

var MLTrainingTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sentrywatch",
		Subsystem: "ml",
		Name:      "training_runs_total",
		Help:      "Total number of ML model training runs, by outcome.",
	},
	[]string{"outcome"},
)

var LiveBusSubscribers = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "sentrywatch",
		Subsystem: "livebus",
		Name:      "subscribers",
		Help:      "Current number of connected live-bus subscribers.",
	},
)

var LiveBusDroppedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "sentrywatch",
		Subsystem: "livebus",
		Name:      "dropped_subscribers_total",
		Help:      "Total number of subscribers dropped due to a full outbound queue.",
	},
)

// All returns every sentrywatch-specific metric collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		IngestTotal,
		DetectorDuration,
		DetectorErrorsTotal,
		AlertsCreatedTotal,
		NotificationsTotal,
		NotificationsThrottledTotal,
		MLTrainingTotal,
		LiveBusSubscribers,
		LiveBusDroppedTotal,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors,
// the shared HTTPRequestDuration metric, and any additional service-specific
// collectors passed as arguments.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
