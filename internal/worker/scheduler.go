package worker

import (
	"context"
	"fmt"
	"time"

	"agendapro/internal/config"
	"agendapro/internal/logging"
	"agendapro/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const jobTimeout = 5 * time.Minute

// PaymentExpirer marks pending payments older than maxAge as expired.
type PaymentExpirer interface {
	ExpireStalePayments(ctx context.Context, maxAge time.Duration) (int64, error)
}

type BackupRunner interface {
	Run(ctx context.Context)
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron     *cron.Cron
	payments PaymentExpirer
	backup   BackupRunner
	worker   config.WorkerConfig
	backups  config.BackupConfig
	logger   *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	expiryID cron.EntryID
	backupID cron.EntryID
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

func NewScheduler(
	payments PaymentExpirer,
	backup BackupRunner,
	workerCfg config.WorkerConfig,
	backupCfg config.BackupConfig,
	logger *zerolog.Logger,
) *Scheduler {
	l := logging.Component(logger, "scheduler")
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{logger: l})))
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     c,
		payments: payments,
		backup:   backup,
		worker:   workerCfg,
		backups:  backupCfg,
		logger:   l,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.payments != nil && s.worker.PaymentExpirySchedule != "" {
		id, err := s.cron.AddFunc(s.worker.PaymentExpirySchedule, s.ExpirePayments)
		if err != nil {
			return fmt.Errorf("failed to schedule payment expiry job: %w", err)
		}
		s.expiryID = id
		s.logger.Info().Str("schedule", s.worker.PaymentExpirySchedule).Msg("scheduled payment expiry job")
	}

	if s.backup != nil && s.backups.Enabled && s.backups.Schedule != "" {
		id, err := s.cron.AddFunc(s.backups.Schedule, s.RunBackup)
		if err != nil {
			return fmt.Errorf("failed to schedule backup job: %w", err)
		}
		s.backupID = id
		s.logger.Info().Str("schedule", s.backups.Schedule).Msg("scheduled backup job")
	}

	s.cron.Start()
	return nil
}

// Stop cancels running jobs and returns a context done when they have returned.
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	return s.cron.Stop()
}

func (s *Scheduler) maxAge() time.Duration {
	hours := s.worker.PaymentMaxAge
	if hours <= 0 {
		hours = models.DefaultPaymentMaxAge
	}
	return time.Duration(hours) * time.Hour
}

// ExpirePayments is the body of the payment expiry job.
func (s *Scheduler) ExpirePayments() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	n, err := s.payments.ExpireStalePayments(ctx, s.maxAge())
	if err != nil {
		s.logger.Error().Err(err).Msg("payment expiry sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int64("expired", n).Msg("expired stale payments")
	}
}

func (s *Scheduler) RunBackup() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()
	s.backup.Run(ctx)
}
