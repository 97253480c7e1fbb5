package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	"github.com/yungbote/edusight-backend/internal/jobs/runtime"
	"github.com/yungbote/edusight-backend/internal/observability"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type Config struct {
	Concurrency      int
	PollInterval     time.Duration
	// MaxAttempts bounds retries of one job; attempts count claims.
	MaxAttempts      int
	RetryDelay       time.Duration
	StaleRunning     time.Duration
	// MaxExecutionTime cancels a handler that runs longer.
	MaxExecutionTime time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.MaxExecutionTime <= 0 {
		c.MaxExecutionTime = 10 * time.Minute
	}
	if c.StaleRunning <= c.MaxExecutionTime {
		c.StaleRunning = 2 * c.MaxExecutionTime
	}
	return c
}

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      Config
	repo     jobs.JobRunRepo
	registry *runtime.Registry
	notify   runtime.Notifier
	wg       sync.WaitGroup
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, cfg Config, repo jobs.JobRunRepo, registry *runtime.Registry, notify runtime.Notifier) *Worker {
	if notify == nil {
		notify = runtime.NewLogNotifier(baseLog)
	}
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		cfg:      cfg.withDefaults(),
		repo:     repo,
		registry: registry,
		notify:   notify,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "job_types", w.registry.Types())
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop has returned after ctx ends.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			for w.RunOnce(ctx, workerID) {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// RunOnce claims and runs at most one job, reporting whether it found one.
func (w *Worker) RunOnce(ctx context.Context, workerID int) bool {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, jobs.ClaimPolicy{
		MaxAttempts:  w.cfg.MaxAttempts,
		RetryDelay:   w.cfg.RetryDelay,
		StaleRunning: w.cfg.StaleRunning,
	})
	if err != nil {
		w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
		return false
	}
	if job == nil {
		return false
	}

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.MaxExecutionTime)
	defer cancel()
	jc := runtime.NewContext(runCtx, w.db, job, w.repo, w.notify)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type",
			"worker_id", workerID,
			"job_type", job.JobType,
			"job_id", job.ID,
		)
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		return true
	}

	start := time.Now()
	defer func() {
		observability.Current().ObserveJob(job.JobType, jc.Job.Status, time.Since(start))
	}()

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic",
					"worker_id", workerID,
					"job_id", job.ID,
					"job_type", job.JobType,
					"panic", r,
				)
				jc.Fail("panic", errFromRecover(r))
			}
		}()

		runErr := h.Run(jc)
		if jc.Job.Status == domainjobs.StatusSucceeded {
			return
		}
		if runErr == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			runErr = runCtx.Err()
		}
		if errors.Is(runErr, context.DeadlineExceeded) {
			jc.Fail("timeout", errs.New(errs.KindInternal,
				fmt.Sprintf("exceeded max execution time %s", w.cfg.MaxExecutionTime), errs.ErrTimeout))
			return
		}
		if runErr != nil {
			// Handlers usually call jc.Fail themselves; this covers the rest.
			jc.Fail("run", runErr)
		}
	}()
	return true
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
