package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	jobrt "github.com/yungbote/edusight-backend/internal/jobs/runtime"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/temporalx/jobrun"
)

type Config struct {
	TaskQueue   string
	Concurrency int
	// StartMaxWait bounds how long Start keeps retrying an unreachable server.
	StartMaxWait time.Duration
	Backoff      time.Duration
	BackoffMax   time.Duration
}

func (c Config) withDefaults() Config {
	if c.TaskQueue == "" {
		c.TaskQueue = "edusight-epr"
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.StartMaxWait < 0 {
		c.StartMaxWait = 0
	}
	if c.Backoff <= 0 {
		c.Backoff = 250 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Second
	}
	return c
}

// Runner hosts the batch-recalculation workflow on the task queue the
// dispatcher starts it on.
type Runner struct {
	log      *logger.Logger
	cfg      Config
	tc       temporalsdkclient.Client
	db       *gorm.DB
	jobRepo  jobs.JobRunRepo
	registry *jobrt.Registry
	notify   jobrt.Notifier
}

func NewRunner(
	baseLog *logger.Logger,
	cfg Config,
	tc temporalsdkclient.Client,
	db *gorm.DB,
	jobRepo jobs.JobRunRepo,
	registry *jobrt.Registry,
	notify jobrt.Notifier,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if db == nil || jobRepo == nil || registry == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:      baseLog.With("component", "TemporalWorker"),
		cfg:      cfg.withDefaults(),
		tc:       tc,
		db:       db,
		jobRepo:  jobRepo,
		registry: registry,
		notify:   notify,
	}, nil
}

// Start polls the task queue until ctx ends. It retries a failed start with
// backoff until StartMaxWait elapses.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "task_queue", r.cfg.TaskQueue)
	deadline := time.Now().Add(r.cfg.StartMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		if r.cfg.StartMaxWait <= 0 || time.Now().After(deadline) {
			var nfe *serviceerror.NamespaceNotFound
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found: %w", startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", startErr)
		time.Sleep(clampBackoff(r.cfg.Backoff, r.cfg.BackoffMax, attempt))
	}
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.Concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.cfg.Concurrency,
	})
	acts := &jobrun.Activities{
		Log:      r.log,
		DB:       r.db,
		Jobs:     r.jobRepo,
		Registry: r.registry,
		Notify:   r.notify,
	}
	w.RegisterWorkflowWithOptions(jobrun.BatchRecalculation, workflow.RegisterOptions{Name: jobrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: jobrun.ActivityRun})
	return w
}

func clampBackoff(base time.Duration, max time.Duration, attempt int) time.Duration {
	sleep := base
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if sleep >= max {
			return max
		}
	}
	if sleep > max {
		return max
	}
	return sleep
}
