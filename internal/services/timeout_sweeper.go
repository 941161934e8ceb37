package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quizcraft/quiz-service/internal/repositories"
)

const sweepBatchSize = 100

// TimeoutSweeper is the server-side backstop for the attempt timer. The
// client submits on expiry in the normal case; the sweeper settles attempts
// whose client never came back (closed tab, crashed browser) by finding
// in_progress rows past their deadline and running the timeout submit path.
type TimeoutSweeper struct {
	repo     repositories.Repository
	attempts AttemptService
	logger   *slog.Logger
	cron     *cron.Cron
	interval time.Duration
}

func NewTimeoutSweeper(repo repositories.Repository, attempts AttemptService, logger *slog.Logger, interval time.Duration) *TimeoutSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TimeoutSweeper{
		repo:     repo,
		attempts: attempts,
		logger:   logger,
		cron:     cron.New(),
		interval: interval,
	}
}

func (s *TimeoutSweeper) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("failed to schedule timeout sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Timeout sweeper started", "interval", s.interval.String())
	return nil
}

func (s *TimeoutSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Timeout sweeper stopped")
}

func (s *TimeoutSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	expired, err := s.repo.Attempt().GetExpiredInProgress(ctx, nil, time.Now(), sweepBatchSize)
	if err != nil {
		s.logger.Error("Timeout sweep query failed", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	s.logger.Info("Sweeping expired attempts", "count", len(expired))

	for _, attempt := range expired {
		if err := s.attempts.HandleTimeout(ctx, attempt.ID); err != nil {
			s.logger.Error("Failed to time out attempt",
				"attempt_id", attempt.ID,
				"quiz_id", attempt.QuizID,
				"error", err)
		}
	}
}
