package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/weathercast/internal/cache"
)

const runTimeout = 30 * time.Second

// Refresher re-fetches the current location.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler periodically refreshes the displayed weather.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	onRefresh func(err error)
}

// New creates a Scheduler. Intervals shorter than the cache TTL are raised
// to it, since earlier runs would only be served from cache. onRefresh, if
// set, is called after every run with its result.
func New(refresher Refresher, interval time.Duration, onRefresh func(err error)) *Scheduler {
	if interval < cache.TTL {
		interval = cache.TTL
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		onRefresh: onRefresh,
	}
}

// Interval returns the effective refresh period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start schedules the refresh job, runs it once immediately and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	log.Debug().Dur("interval", s.interval).Msg("scheduler started")
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	log.Debug().Msg("scheduler: refreshing weather")
	err := s.refresher.Refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("scheduler: refresh failed")
	}
	if s.onRefresh != nil {
		s.onRefresh(err)
	}
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
