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
	LoginCounter    prometheus.Counter
	RegisterCounter prometheus.Counter

	// Tokens issued by login and tenant switch
	TokensIssuedCounter prometheus.Counter

	// Tenant operation counter
	TenantOperationCounter *prometheus.CounterVec

	// Error counters, type can be "invalid_password", "tenant_access_denied", "invalid_token" etc.
	AuthErrorCounter *prometheus.CounterVec

	// Token validation on /api routes
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter

	DBOperationDuration *prometheus.HistogramVec

	initOnce sync.Once
)

// InitMetrics registers the service metrics using the configured prefix. Later calls are no-ops.
func InitMetrics(cfg *config.Config) {
	initOnce.Do(func() {
		register(cfg.Metrics.Prefix)
	})
}

func register(prefix string) {
	LoginCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_login_total",
		Help: "Total number of login attempts",
	})
	RegisterCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_register_total",
		Help: "Total number of user registrations",
	})
	TokensIssuedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_tokens_issued_total",
		Help: "Total number of issued access tokens",
	})
	TenantOperationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_tenant_operations_total",
			Help: "Total number of tenant operations",
		},
		[]string{"operation"},
	)
	AuthErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)
	AuthAttemptsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_auth_attempts_total",
		Help: "Total number of token validations",
	})
	AuthSuccessCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_auth_success_total",
		Help: "Total number of successful token validations",
	})
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if DBOperationDuration != nil {
			DBOperationDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
		}
	}
}

func RecordLogin() {
	if LoginCounter != nil {
		LoginCounter.Inc()
	}
}

func RecordRegister() {
	if RegisterCounter != nil {
		RegisterCounter.Inc()
	}
}

func RecordTokenIssued() {
	if TokensIssuedCounter != nil {
		TokensIssuedCounter.Inc()
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	if AuthErrorCounter != nil {
		AuthErrorCounter.WithLabelValues(errorType).Inc()
	}
}

// RecordTenantOperation records a tenant operation
func RecordTenantOperation(operation string) {
	if TenantOperationCounter != nil {
		TenantOperationCounter.WithLabelValues(operation).Inc()
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
		OnFailure: RecordAuthError,
	}
}
