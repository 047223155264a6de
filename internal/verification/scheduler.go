package verification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts slog to the logger cron reports job panics and skips through
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// StaleScheduler periodically re-requests verifications the provider never answered
type StaleScheduler struct {
	cron      *cron.Cron
	requester *Requester
	logger    *slog.Logger
}

// NewStaleScheduler registers the re-request job on the given cron schedule. A run
// that overlaps the previous one is skipped.
func NewStaleScheduler(ctx context.Context, logger *slog.Logger, schedule string, requester *Requester) (*StaleScheduler, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &StaleScheduler{
		cron:      c,
		requester: requester,
		logger:    logger,
	}

	if _, err := c.AddFunc(schedule, func() { s.run(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid kyc poll schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *StaleScheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.requester.RequestStale(ctx); err != nil {
		s.logger.Error("Stale verification sweep failed", "error", err)
	}
}

func (s *StaleScheduler) Start() {
	s.logger.Info("Starting stale verification scheduler")
	s.cron.Start()
}

// Stop waits for a running sweep to finish
func (s *StaleScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Stale verification scheduler stopped")
}
