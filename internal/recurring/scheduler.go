package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Veraticus/hearth/internal/common"
)

// Runner runs a detection pass.
type Runner interface {
	Detect(ctx context.Context, accountID string) (*DetectReport, error)
}

// Scheduler re-runs detection on a cron schedule.
type Scheduler struct {
	runner    Runner
	cron      *cron.Cron
	logger    *slog.Logger
	accountID string
	schedule  string
	timeout   time.Duration
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler that detects patterns for accountID (all accounts
// when empty) on the given cron spec. Descriptors such as "@daily" are accepted.
func NewScheduler(runner Runner, schedule, accountID string, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("%w: invalid recurring schedule %q: %v", common.ErrInvalidConfig, schedule, err)
	}
	return &Scheduler{
		runner:    runner,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		logger:    common.ComponentLogger(logger, "scheduler"),
		accountID: accountID,
		schedule:  schedule,
		timeout:   10 * time.Minute,
	}, nil
}

// Start schedules the detection job and returns immediately. The job stops when ctx
// is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("Scheduled detection failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("unable to schedule recurring detection: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Recurring detection scheduled", "schedule", s.schedule, "account_id", s.accountID)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce runs a single detection pass unless one is already in progress.
func (s *Scheduler) RunOnce(ctx context.Context) (*DetectReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Skipping detection, previous run still in progress")
		return nil, nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	report, err := s.runner.Detect(runCtx, s.accountID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Scheduled detection finished", "duration", time.Since(start), "created", report.Created)
	return report, nil
}
