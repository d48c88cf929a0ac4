package clonejob

import (
	"context"
	"sync"
	"time"

	"shopops/internal/types"

	"github.com/sirupsen/logrus"
)

// Runner polls for due clone jobs and executes them one at a time.
type Runner struct {
	service  *Service
	interval time.Duration
	timeout  time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRunner creates a new Runner from configuration.
func NewRunner(service *Service, configManager types.ConfigManager) *Runner {
	cfg := configManager.GetSchedulerConfig()
	return &Runner{
		service:  service,
		interval: time.Duration(cfg.CloneCheckIntervalSeconds) * time.Second,
		timeout:  time.Duration(cfg.SyncTimeoutSeconds) * time.Second,
		stopChan: make(chan struct{}),
	}
}

// Start begins the polling loop. Non-blocking.
func (r *Runner) Start() {
	logrus.Debug("Starting clone job runner...")
	r.wg.Add(1)
	go r.runLoop()
}

// Stop halts the loop, waiting for an in-flight job up to the context
// deadline.
func (r *Runner) Stop(ctx context.Context) {
	close(r.stopChan)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("Clone job runner stopped gracefully.")
	case <-ctx.Done():
		logrus.Warn("Clone job runner stop timed out.")
	}
}

func (r *Runner) runLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.processDueJobs()
		case <-r.stopChan:
			return
		}
	}
}

func (r *Runner) processDueJobs() {
	jobs, err := r.service.ListDue(time.Now())
	if err != nil {
		logrus.WithError(err).Error("Clone job runner: failed to list due jobs")
		return
	}

	for i := range jobs {
		select {
		case <-r.stopChan:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		job, err := r.service.Run(ctx, jobs[i].ID)
		cancel()
		if err == ErrInvalidState {
			// Claimed by a concurrent runner between listing and pickup.
			continue
		}
		if err != nil {
			logrus.WithError(err).WithField("job_id", jobs[i].ID).Error("Clone job runner: run failed")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"job_id": job.ID,
			"status": job.Status,
		}).Debug("Clone job runner: job finished")
	}
}
