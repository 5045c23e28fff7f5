package papertrade

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/sycamore/pkg/logger"
)

// Scheduler fires recurring paper-trading jobs: the daily strategy
// pass and the stale-order expiry sweep.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: log,
	}
}

// Schedule registers a named job on a cron expression.
func (s *Scheduler) Schedule(name, spec string, job func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job(context.Background()); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("scheduled job failed")
			return
		}
		s.logger.WithFields(map[string]interface{}{
			"job":        name,
			"duration_s": time.Since(start).Seconds(),
		}).Info("scheduled job completed")
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": spec,
	}).Info("job scheduled")
	return nil
}

// ScheduleExpiry registers the deadline sweep for the engine's
// SUBMITTED orders.
func (s *Scheduler) ScheduleExpiry(spec string, engine *Engine) error {
	return s.Schedule("order_expiry", spec, func(ctx context.Context) error {
		if n := engine.ExpireStale(time.Now()); n > 0 {
			s.logger.WithField("expired", n).Warn("stale orders rejected")
		}
		return nil
	})
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
