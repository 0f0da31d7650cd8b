package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const (
	defaultInterval = 15 * time.Minute
	jobTimeout      = 30 * time.Second
)

// Refresher re-fetches the known location when nothing else is running.
type Refresher interface {
	RefreshIfIdle(ctx context.Context) (bool, error)
}

// Scheduler periodically refreshes the dashboard.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	logger    zerolog.Logger
}

// New creates a new Scheduler.
func New(refresher Refresher, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
// The first run happens one interval after start.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info().Dur("interval", s.interval).Msg("refresh scheduler started")
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	ran, err := s.refresher.RefreshIfIdle(ctx)
	switch {
	case err != nil:
		s.logger.Error().Err(err).Msg("scheduled refresh failed")
	case !ran:
		s.logger.Debug().Msg("scheduled refresh skipped")
	default:
		s.logger.Debug().Msg("scheduled refresh completed")
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
