package metrics

import "github.com/prometheus/client_golang/prometheus"

var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sitebook_http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "sitebook_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HTTPErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sitebook_http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var HTTPRateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "sitebook_http_rate_limit_rejections_total",
		Help: "Total number of HTTP requests rejected due to rate limiting",
	},
)

// NotificationsSyncedTotal counts notification rows inserted or removed by the synchronizer.
var NotificationsSyncedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sitebook_notifications_synced_total",
		Help: "Total number of notification rows written by the synchronizer",
	},
	[]string{"action"},
)

var NotificationPublishFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sitebook_notification_publish_failures_total",
		Help: "Total number of notification events that failed to publish",
	},
	[]string{"kind"},
)

var PermitsExpiring = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "sitebook_permits_expiring",
		Help: "Permits inside the expiry window at the last read, by urgency",
	},
	[]string{"urgency"},
)

// Register adds every collector to registerer.
func Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPErrorsTotal,
		HTTPRateLimitRejectionsTotal,
		NotificationsSyncedTotal,
		NotificationPublishFailuresTotal,
		PermitsExpiring,
	}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
