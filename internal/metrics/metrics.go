package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossbus_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crossbus_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Bus metrics
	RecordsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossbus_records_published_total",
			Help: "Total records appended to the log",
		},
		[]string{"type"},
	)

	NotificationsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crossbus_notifications_delivered_total",
			Help: "Total notifications delivered to subscribers",
		},
	)

	PublishesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossbus_publishes_dropped_total",
			Help: "Total publishes dropped with a warning",
		},
		[]string{"reason"}, // "closed" or "detached"
	)

	ComponentsAttached = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crossbus_components_attached_total",
			Help: "Total component attachments",
		},
	)

	// Watch metrics
	WatchConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossbus_watch_connections",
			Help: "Currently open watch connections",
		},
	)

	WatchDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crossbus_watch_dropped_total",
			Help: "Watch connections closed for slow consumption",
		},
	)

	// Archive metrics
	ArchiveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossbus_archive_writes_total",
			Help: "Total records mirrored to the archive",
		},
		[]string{"backend"},
	)

	ArchiveErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossbus_archive_errors_total",
			Help: "Total archive mirror failures",
		},
		[]string{"backend"},
	)

	ArchiveLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crossbus_archive_latency_seconds",
			Help:    "Archive append latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)
