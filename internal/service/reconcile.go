package service

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/usecase"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
)

// ReconcileScheduler periodically re-runs the lifecycle reconciliation so
// reminders for groups the bot silently lost (network partitions, missed
// events) do not linger until the next restart.
type ReconcileScheduler struct {
	lifecycleUC *usecase.LifecycleUsecase
	cronSpec    string

	runner  *cron.Cron
	entryID cron.EntryID
}

// NewReconcileScheduler creates the scheduler. cronSpec uses the standard
// five-field cron syntax.
func NewReconcileScheduler(lifecycleUC *usecase.LifecycleUsecase, cronSpec string) *ReconcileScheduler {
	return &ReconcileScheduler{
		lifecycleUC: lifecycleUC,
		cronSpec:    cronSpec,
	}
}

// Start schedules the reconcile job. Returns an error on a bad cron spec.
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.runner = cron.New()

	entryID, err := s.runner.AddFunc(s.cronSpec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.entryID = entryID

	s.runner.Start()
	logger.L.Info("reconcile scheduler started", "spec", s.cronSpec)
	return nil
}

// Stop halts the scheduler, waiting for a running job to finish.
func (s *ReconcileScheduler) Stop() {
	if s.runner == nil {
		return
	}
	stopCtx := s.runner.Stop()
	<-stopCtx.Done()
	logger.L.Info("reconcile scheduler stopped")
}

func (s *ReconcileScheduler) runOnce(ctx context.Context) {
	logger.L.Debug("scheduled reconcile run")
	if err := s.lifecycleUC.Reconcile(ctx); err != nil {
		logger.L.Warn("scheduled reconcile failed", "err", err)
	}
}
