package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "collection"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type", "reason"}, // database/auth/reminder, free-form reason
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status", "type"}, // success/failure, google/otp/logout
	)

	TaskOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_operations_total",
			Help: "Total number of task operations",
		},
		[]string{"operation"},
	)

	ReminderDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_deliveries_total",
			Help: "Reminder emails by outcome",
		},
		[]string{"status"}, // sent, failed, skipped, missed
	)

	ArmedReminders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminders_armed",
			Help: "Reminders currently waiting on an in-process timer",
		},
	)
)

// TrackDBOperation times a database call. Callers defer ObserveDuration on the result.
func TrackDBOperation(operation, collection string) *prometheus.Timer {
	return prometheus.NewTimer(DBOperationDuration.WithLabelValues(operation, collection))
}

func TrackError(errorType, reason string) {
	ErrorsTotal.WithLabelValues(errorType, reason).Inc()
}

func TrackAuthAttempt(status, authType string) {
	AuthAttempts.WithLabelValues(status, authType).Inc()
}

func TrackTaskOperation(operation string) {
	TaskOperationsTotal.WithLabelValues(operation).Inc()
}

func TrackReminderDelivery(status string) {
	ReminderDeliveries.WithLabelValues(status).Inc()
}

func SetArmedReminders(n int) {
	ArmedReminders.Set(float64(n))
}
