package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/suteetoe/opshub/gomicro/config"
	"github.com/suteetoe/opshub/gomicro/middleware"
)

var (
	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   *prometheus.CounterVec

	// Tenant context metrics
	TenantContextMissingCounter prometheus.Counter

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Module operation metrics
	OperationsCounter *prometheus.CounterVec

	// Booking metrics
	BookingConflictsCounter prometheus.Counter
	ActiveBookingsGauge     *prometheus.GaugeVec
	NoShowsCounter          prometheus.Counter

	// Notification metrics
	NotificationsSentCounter   *prometheus.CounterVec
	NotificationsFailedCounter *prometheus.CounterVec

	// Import metrics
	ImportRowsCounter *prometheus.CounterVec

	initOnce sync.Once
)

// InitMetrics registers the service metrics using the configured prefix. Later calls are no-ops.
func InitMetrics(cfg *config.Config) {
	initOnce.Do(func() {
		register(cfg.Metrics.Prefix)
	})
}

func register(prefix string) {
	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"reason"},
	)

	TenantContextMissingCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_tenant_context_missing_total",
			Help: "Total number of requests without tenant context",
		},
	)

	DbOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	OperationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_operations_total",
			Help: "Total number of business operations",
		},
		[]string{"module", "operation"},
	)

	BookingConflictsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_booking_conflicts_total",
			Help: "Total number of rejected overlapping bookings",
		},
	)

	ActiveBookingsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_active_bookings",
			Help: "Number of bookings in progress per tenant",
		},
		[]string{"tenant_id"},
	)

	NoShowsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_booking_no_shows_total",
			Help: "Total number of bookings marked as no-show",
		},
	)

	NotificationsSentCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_notifications_sent_total",
			Help: "Total number of notifications delivered",
		},
		[]string{"event"},
	)

	NotificationsFailedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_notifications_failed_total",
			Help: "Total number of notifications that could not be delivered",
		},
		[]string{"event"},
	)

	ImportRowsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_import_rows_total",
			Help: "Total number of processed import rows",
		},
		[]string{"result"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if DbOperationDuration == nil {
			return
		}
		DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordOperation increments the counter for a module operation
func RecordOperation(module, operation string) {
	if OperationsCounter != nil {
		OperationsCounter.WithLabelValues(module, operation).Inc()
	}
}

func RecordTenantContextMissing() {
	if TenantContextMissingCounter != nil {
		TenantContextMissingCounter.Inc()
	}
}

func RecordBookingConflict() {
	if BookingConflictsCounter != nil {
		BookingConflictsCounter.Inc()
	}
}

func RecordNoShows(count int64) {
	if NoShowsCounter != nil {
		NoShowsCounter.Add(float64(count))
	}
}

// RecordNotification counts a delivered or failed notification
func RecordNotification(event string, err error) {
	if NotificationsSentCounter == nil {
		return
	}
	if err != nil {
		NotificationsFailedCounter.WithLabelValues(event).Inc()
		return
	}
	NotificationsSentCounter.WithLabelValues(event).Inc()
}

// RecordImportRows counts imported and rejected rows
func RecordImportRows(succeeded, failed int) {
	if ImportRowsCounter == nil {
		return
	}
	ImportRowsCounter.WithLabelValues("success").Add(float64(succeeded))
	ImportRowsCounter.WithLabelValues("error").Add(float64(failed))
}

// SetActiveBookings replaces the per-tenant active bookings gauge
func SetActiveBookings(counts map[string]int64) {
	if ActiveBookingsGauge == nil {
		return
	}
	ActiveBookingsGauge.Reset()
	for tenantID, count := range counts {
		ActiveBookingsGauge.WithLabelValues(tenantID).Set(float64(count))
	}
}

// AuthHooks adapts the auth counters to the shared JWT middleware
func AuthHooks() middleware.AuthHooks {
	return middleware.AuthHooks{
		OnAttempt: func() {
			if AuthAttemptsCounter != nil {
				AuthAttemptsCounter.Inc()
			}
		},
		OnSuccess: func() {
			if AuthSuccessCounter != nil {
				AuthSuccessCounter.Inc()
			}
		},
		OnFailure: func(reason string) {
			if AuthErrorsCounter != nil {
				AuthErrorsCounter.WithLabelValues(reason).Inc()
			}
		},
	}
}
