package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) SweepNoShows(ctx context.Context, grace time.Duration) (int64, error) {
	args := m.Called(ctx, grace)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBookings) RefreshActiveGauge(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var testConfig = Config{
	NoShowSweepSpec:   "0 */5 * * * *",
	GaugeRefreshSpec:  "0 * * * * *",
	NoShowGracePeriod: 30 * time.Minute,
}

func TestNewRejectsBadSpec(t *testing.T) {
	cfg := testConfig
	cfg.NoShowSweepSpec = "every five minutes"

	_, err := New(cfg, new(mockBookings), zap.NewNop())

	assert.ErrorContains(t, err, "schedule no-show sweep")
}

func TestSweepUsesGracePeriod(t *testing.T) {
	bookings := new(mockBookings)
	bookings.On("SweepNoShows", mock.Anything, 30*time.Minute).Return(int64(3), nil).Once()

	s, err := New(testConfig, bookings, zap.NewNop())
	require.NoError(t, err)

	s.SweepNoShows()

	bookings.AssertExpectations(t)
}

func TestJobErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	bookings := new(mockBookings)
	bookings.On("SweepNoShows", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down")).Once()
	bookings.On("RefreshActiveGauge", mock.Anything).Return(errors.New("db down")).Once()

	s, err := New(testConfig, bookings, zap.New(core))
	require.NoError(t, err)

	s.SweepNoShows()
	s.RefreshGauges()

	assert.Equal(t, 1, logs.FilterMessage("No-show sweep failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Active bookings gauge refresh failed").Len())
}

func TestStartAndStop(t *testing.T) {
	s, err := New(testConfig, new(mockBookings), zap.NewNop())
	require.NoError(t, err)

	s.Start()
	assert.Len(t, s.cron.Entries(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
