package prometheus

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/suteetoe/opshub/gomicro/config"
)

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordOperation("bookings", "create")
		RecordNotification("created", nil)
		RecordImportRows(1, 1)
		SetActiveBookings(map[string]int64{"t": 1})
	})
}

func TestRecordersAfterInit(t *testing.T) {
	InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "opshub_test"}})

	RecordOperation("wbs", "approve")
	RecordOperation("wbs", "approve")
	assert.Equal(t, float64(2), testutil.ToFloat64(OperationsCounter.WithLabelValues("wbs", "approve")))

	RecordNotification("approved", errors.New("smtp down"))
	assert.Equal(t, float64(1), testutil.ToFloat64(NotificationsFailedCounter.WithLabelValues("approved")))

	SetActiveBookings(map[string]int64{"tenant-a": 3})
	assert.Equal(t, float64(3), testutil.ToFloat64(ActiveBookingsGauge.WithLabelValues("tenant-a")))

	RecordImportRows(5, 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(ImportRowsCounter.WithLabelValues("error")))
}
