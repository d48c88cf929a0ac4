package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"shopops/internal/types"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner drives the execution engine on a cron schedule. A pass that is
// still running when the next tick fires is not overlapped.
type Runner struct {
	engine  *Engine
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	running atomic.Bool
}

// NewRunner creates a Runner from configuration.
func NewRunner(engine *Engine, configManager types.ConfigManager) *Runner {
	cfg := configManager.GetSchedulerConfig()
	return &Runner{
		engine:  engine,
		spec:    cfg.ProcessDueCron,
		timeout: time.Duration(cfg.SyncTimeoutSeconds) * time.Second,
	}
}

// Start registers the cron entry and begins ticking. Non-blocking.
func (r *Runner) Start() error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.spec, r.runOnce); err != nil {
		return err
	}
	r.cron.Start()
	logrus.Infof("Scheduler runner started (spec %q)", r.spec)
	return nil
}

// Stop halts the cron scheduler, waiting for a running pass up to the
// context deadline.
func (r *Runner) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	stopped := r.cron.Stop()
	select {
	case <-stopped.Done():
		logrus.Info("Scheduler runner stopped gracefully.")
	case <-ctx.Done():
		logrus.Warn("Scheduler runner stop timed out.")
	}
}

func (r *Runner) runOnce() {
	if !r.running.CompareAndSwap(false, true) {
		logrus.Warn("Scheduler runner: previous pass still running, skipping tick")
		return
	}
	defer r.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	summary, err := r.engine.ProcessDue(ctx, time.Now())
	if err != nil {
		logrus.WithError(err).Error("Scheduler runner: budget pass aborted")
		return
	}
	if summary.Succeeded+summary.Failed+summary.Skipped > 0 {
		logrus.Debugf("Scheduler runner: pass done (%d ok, %d failed, %d skipped)",
			summary.Succeeded, summary.Failed, summary.Skipped)
	}
}
