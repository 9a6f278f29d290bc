package recurrence

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Manudeeprao/expense-tracker/internal/logger"
)

// DefaultSpec runs the job daily at 01:00.
const DefaultSpec = "0 1 * * *"

// Runner triggers the scheduler on a cron schedule.
type Runner struct {
	cron      *cron.Cron
	scheduler *Scheduler
	log       *zap.SugaredLogger
	ctx       context.Context
}

// NewRunner schedules s at the standard five-field cron spec, evaluated in loc.
func NewRunner(s *Scheduler, spec string, loc *time.Location) (*Runner, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if loc == nil {
		loc = time.UTC
	}

	log := logger.Named("recurrence.runner")
	cl := cronLogger{log: log}
	r := &Runner{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		scheduler: s,
		log:       log,
		ctx:       context.Background(),
	}

	if _, err := r.cron.AddFunc(spec, r.runOnce); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return r, nil
}

func (r *Runner) runOnce() {
	result := r.scheduler.RunDueRecurrences(r.ctx)
	r.log.Infow("Scheduled recurrence run finished",
		"generated", result.Generated,
		"failed", result.Failed,
		"duration", result.Duration,
	)
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// an in-flight run to finish.
func (r *Runner) Run(ctx context.Context) error {
	r.ctx = ctx
	r.cron.Start()

	entries := r.cron.Entries()
	if len(entries) > 0 {
		r.log.Infow("Recurrence runner started", "next_run", entries[0].Next)
	}

	<-ctx.Done()
	<-r.cron.Stop().Done()
	r.log.Info("Recurrence runner stopped")
	return nil
}

// cronLogger routes cron's internal logging to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
