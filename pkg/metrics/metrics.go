package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	RemindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Reminder emails by outcome",
		},
		[]string{"result"}, // sent, failed, skipped
	)

	ReminderRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_run_duration_seconds",
			Help:    "Duration of a full reminder batch",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	ActivityAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_log_appends_total",
			Help: "Activity log writes by outcome",
		},
		[]string{"result"}, // written, dropped
	)

	TemplateCopies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "template_copies_total",
			Help: "Template instantiations and duplications",
		},
		[]string{"kind", "result"},
	)
)

func RecordHTTPRequestDuration(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func IncrementReminder(result string) {
	RemindersSent.WithLabelValues(result).Inc()
}

func IncrementActivity(result string) {
	ActivityAppends.WithLabelValues(result).Inc()
}

func IncrementTemplateCopy(kind, result string) {
	TemplateCopies.WithLabelValues(kind, result).Inc()
}
