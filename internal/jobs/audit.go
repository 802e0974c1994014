// Package jobs runs periodic background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/pkg/logger"
)

// QuotaAuditor performs one audit pass
type QuotaAuditor interface {
	Run(ctx context.Context) ([]models.QuotaDrift, error)
}

// Scheduler runs the quota audit on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	auditor QuotaAuditor
	timeout time.Duration
}

// NewScheduler registers the audit under spec, which accepts standard five
// field expressions and descriptors such as "@every 10m"
func NewScheduler(auditor QuotaAuditor, spec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		auditor: auditor,
		timeout: time.Minute,
	}

	if _, err := s.cron.AddFunc(spec, s.runAudit); err != nil {
		return nil, fmt.Errorf("invalid audit schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Job scheduler started")
}

// Stop stops the scheduler and waits for a running audit until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		logger.Info().Msg("Job scheduler stopped")
	case <-ctx.Done():
		logger.Warn().Msg("Job scheduler stop timed out")
	}
}

func (s *Scheduler) runAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	lgr := logger.Default().With().Str("job", "quota_audit").Logger()
	ctx = logger.WithContext(ctx, lgr)

	if _, err := s.auditor.Run(ctx); err != nil {
		lgr.Error().Err(err).Msg("Quota audit failed")
	}
}
