package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one periodic task. Run gets a context bounded by Timeout.
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs periodic maintenance jobs. A run is skipped while the
// previous run of the same job is still in progress.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		ctx:  context.Background(),
		log:  log,
	}
}

func (s *Scheduler) Add(job Job) error {
	_, err := s.cron.AddFunc(job.Spec, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("schedule job %s failed: %w", job.Name, err)
	}
	return nil
}

func (s *Scheduler) run(job Job) {
	if job.Timeout <= 0 {
		job.Timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(s.ctx, job.Timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("scheduled job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	s.log.Debug("scheduled job done", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ log *zap.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// MaintenanceJobs are the jobs the server schedules.
func MaintenanceJobs(purgeTokens func(context.Context) (int64, error), requeueStale func(context.Context) (int, error), log *zap.Logger) []Job {
	return []Job{
		{
			Name: "purge-reset-tokens",
			Spec: "@every 1h",
			Run: func(ctx context.Context) error {
				n, err := purgeTokens(ctx)
				if err == nil && n > 0 {
					log.Info("purged expired reset tokens", zap.Int64("count", n))
				}
				return err
			},
		},
		{
			Name:    "requeue-stale-files",
			Spec:    "@every 10m",
			Timeout: 5 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := requeueStale(ctx)
				return err
			},
		},
	}
}
