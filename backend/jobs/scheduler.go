package jobs

import (
	"context"

	"github.com/robfig/cron/v3"

	"coursehub/backend/utils"
)

// cronLogger adapts the app logger to cron.Logger.
type cronLogger struct {
	log *utils.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}

// Scheduler runs background jobs. A job still running when its next tick
// arrives is skipped, and panics are recovered and logged.
type Scheduler struct {
	cron *cron.Cron
	log  *utils.Logger
}

func NewScheduler(baseLog *utils.Logger) *Scheduler {
	log := baseLog.With("service", "Scheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// Add registers fn under a cron spec. An empty spec disables the job.
func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context)) error {
	if spec == "" {
		s.log.Info("job disabled", "job", name)
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() { fn(context.Background()) })
	if err != nil {
		return err
	}
	s.log.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("jobs still running at shutdown")
	}
}

func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }
