package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of active HTTP requests",
		},
	)

	RemindersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_dispatched_total",
			Help: "Reminder firings by outcome",
		},
		[]string{"result"}, // sent, stale, error, dropped
	)

	ScheduledJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_jobs_scheduled",
			Help: "Reminder jobs currently loaded in the cron runtime",
		},
	)

	HabitOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_operations_total",
			Help: "Habit writes by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status", "type"}, // success/failure, register/login/refresh
	)
)

func TrackHabitOperation(operation string, err error) {
	HabitOperations.WithLabelValues(operation, outcome(err)).Inc()
}

func TrackAuthAttempt(authType string, err error) {
	AuthAttempts.WithLabelValues(outcome(err), authType).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// ReminderRecorder feeds the reminder worker's outcomes into prometheus.
type ReminderRecorder struct{}

func (ReminderRecorder) ObserveDispatch(result string) {
	RemindersDispatched.WithLabelValues(result).Inc()
}

func (ReminderRecorder) SetScheduled(n int) {
	ScheduledJobs.Set(float64(n))
}
