package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockwatch/internal/config"
	"github.com/mamadbah2/stockwatch/internal/domain/models"
	"github.com/mamadbah2/stockwatch/internal/service/lowstock"
)

// Runner performs one low-stock evaluation.
type Runner interface {
	Run(ctx context.Context) (models.RunSummary, error)
}

// Scheduler triggers the low-stock evaluation on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a scheduler whose schedule is interpreted in the
// business timezone.
func NewScheduler(cfg config.LowStockConfig, runner Runner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		runner:   runner,
		schedule: cfg.CronSchedule,
		timeout:  cfg.RunTimeout,
		logger:   logger,
	}
}

// Start registers the evaluation job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.evaluate); err != nil {
		return fmt.Errorf("schedule low stock evaluation %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running evaluation to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) evaluate() {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	summary, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, lowstock.ErrRunInProgress):
		s.logger.Info("scheduled evaluation skipped, previous run still active")
	case err != nil:
		s.logger.Error("scheduled evaluation failed", zap.Error(err))
	default:
		s.logger.Debug("scheduled evaluation finished",
			zap.Int("low", summary.LowCount),
			zap.Bool("sent_threshold", summary.SentThreshold),
			zap.Bool("sent_daily", summary.SentDaily))
	}
}
