package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "visitrack"

// PrometheusRecorder implements Recorder on Prometheus collectors.
type PrometheusRecorder struct {
	visits        *prometheus.CounterVec
	aggregations  *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	notifyLatency prometheus.Histogram
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		visits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_tracked_total",
			Help:      "Visit recording attempts by outcome.",
		}, []string{"status"}),
		aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monthly_visitor_queries_total",
			Help:      "Monthly unique visitor queries by outcome.",
		}, []string{"status"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_duration_seconds",
			Help:      "Event store call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Admin notifications by kind and outcome.",
		}, []string{"kind", "status"}),
		notifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_duration_seconds",
			Help:      "Mail transport latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	for _, c := range []prometheus.Collector{r.visits, r.aggregations, r.storeDuration, r.notifications, r.notifyLatency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *PrometheusRecorder) IncVisitTracked(status string) {
	r.visits.WithLabelValues(status).Inc()
}

func (r *PrometheusRecorder) IncAggregationQuery(status string) {
	r.aggregations.WithLabelValues(status).Inc()
}

func (r *PrometheusRecorder) ObserveStoreDuration(op string, duration time.Duration) {
	r.storeDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) IncNotification(kind, status string) {
	r.notifications.WithLabelValues(kind, status).Inc()
}

func (r *PrometheusRecorder) ObserveNotificationDuration(duration time.Duration) {
	r.notifyLatency.Observe(duration.Seconds())
}
