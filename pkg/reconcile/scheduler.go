package reconcile

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/teamseats/pkg/observability"
)

// DefaultSchedule runs the audit hourly.
const DefaultSchedule = "@every 1h"

// Scheduler runs an Auditor on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger
}

// NewScheduler creates a Scheduler for auditor. It fails when schedule does not parse.
func NewScheduler(auditor *Auditor, schedule string, logger *observability.Logger) (*Scheduler, error) {
	logger = observability.OrNop(logger)
	cronLogger := cronLogger{logger: logger}

	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(schedule, func() {
		if _, err := auditor.Run(context.Background()); err != nil {
			logger.WithError(err).Error("seat audit failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins running scheduled audits in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("seat audit scheduler started")
}

// Stop stops scheduling and waits for a running audit to finish or ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("seat audit scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	logger *observability.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
