// Package scheduler runs the periodic maintenance jobs of the opshub service.
package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// BookingJobs is the booking maintenance the scheduler drives
type BookingJobs interface {
	SweepNoShows(ctx context.Context, grace time.Duration) (int64, error)
	RefreshActiveGauge(ctx context.Context) error
}

// Config holds cron specs with a leading seconds field
type Config struct {
	NoShowSweepSpec   string
	GaugeRefreshSpec  string
	NoShowGracePeriod time.Duration
}

type Scheduler struct {
	cron     *cron.Cron
	bookings BookingJobs
	grace    time.Duration
	log      *zap.Logger
}

func New(cfg Config, bookings BookingJobs, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		bookings: bookings,
		grace:    cfg.NoShowGracePeriod,
		log:      log,
	}

	if _, err := s.cron.AddFunc(cfg.NoShowSweepSpec, s.SweepNoShows); err != nil {
		return nil, errors.Wrapf(err, "schedule no-show sweep %q", cfg.NoShowSweepSpec)
	}
	if _, err := s.cron.AddFunc(cfg.GaugeRefreshSpec, s.RefreshGauges); err != nil {
		return nil, errors.Wrapf(err, "schedule gauge refresh %q", cfg.GaugeRefreshSpec)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// SweepNoShows marks reservations nobody checked in to
func (s *Scheduler) SweepNoShows() {
	marked, err := s.bookings.SweepNoShows(context.Background(), s.grace)
	if err != nil {
		s.log.Error("No-show sweep failed", zap.Error(err))
		return
	}
	if marked > 0 {
		s.log.Info("Marked bookings as no-show", zap.Int64("count", marked))
	}
}

func (s *Scheduler) RefreshGauges() {
	if err := s.bookings.RefreshActiveGauge(context.Background()); err != nil {
		s.log.Error("Active bookings gauge refresh failed", zap.Error(err))
	}
}
