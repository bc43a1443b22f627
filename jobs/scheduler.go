package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/training_academy/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on fixed intervals. A run that panics is recovered and
// a run still in progress when the next tick fires is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(log logrus.FieldLogger) *Scheduler {
	clog := cronLogger{log: log.WithField("component", "scheduler")}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog))),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Every(interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name())
	}
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		RunOnce(s.ctx, job, s.log)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	s.log.WithFields(logrus.Fields{"job": job.Name(), "every": interval}).Info("job scheduled")
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels running jobs and waits for them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce runs job and logs its failure. Errors are counted, never returned.
func RunOnce(ctx context.Context, job Job, log logrus.FieldLogger) {
	start := time.Now()
	entry := log.WithField("job", job.Name())
	if err := job.Run(ctx); err != nil {
		metrics.JobFailures.WithLabelValues(job.Name()).Inc()
		entry.WithError(err).Error("job failed")
		return
	}
	entry.WithField("took", time.Since(start)).Debug("job finished")
}

type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.WithFields(fields(kv)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.WithFields(fields(kv)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
