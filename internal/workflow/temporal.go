package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type TemporalConfig struct {
	Address   string
	Namespace string
	TaskQueue string

	DialTimeout time.Duration
	DialMaxWait time.Duration
	Backoff     time.Duration
	BackoffMax  time.Duration
}

func (c TemporalConfig) withDefaults() TemporalConfig {
	if c.Namespace == "" {
		c.Namespace = "edusight"
	}
	if c.TaskQueue == "" {
		c.TaskQueue = "edusight-epr"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.DialMaxWait < 0 {
		c.DialMaxWait = 0
	}
	if c.Backoff <= 0 {
		c.Backoff = 250 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Second
	}
	return c
}

// NewClient dials Temporal, retrying until DialMaxWait elapses. It returns a
// nil client when no address is configured.
func NewClient(cfg TemporalConfig, log *logger.Logger) (temporalsdkclient.Client, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.Address) == "" {
		log.Warn("temporal address not set; workflow triggers are logged only")
		return nil, nil
	}
	opts := temporalsdkclient.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
		Logger:    log,
	}
	deadline := time.Now().Add(cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
		c, err := temporalsdkclient.DialContext(ctx, opts)
		cancel()
		if err == nil {
			if attempt > 1 {
				log.Info("connected to temporal", "address", cfg.Address, "namespace", cfg.Namespace, "attempts", attempt)
			}
			return c, nil
		}
		if cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			return nil, fmt.Errorf("temporal dial failed (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
		}
		log.Warn("temporal not reachable; retrying", "address", cfg.Address, "attempt", attempt, "error", err)
		time.Sleep(clampBackoff(cfg.Backoff, cfg.BackoffMax, attempt))
	}
}

func clampBackoff(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}

type temporalDispatcher struct {
	log       *logger.Logger
	client    temporalsdkclient.Client
	taskQueue string
}

// NewTemporal starts one workflow run per event. Events with the same ID
// reuse the open run instead of starting another.
func NewTemporal(baseLog *logger.Logger, c temporalsdkclient.Client, taskQueue string) Dispatcher {
	if strings.TrimSpace(taskQueue) == "" {
		taskQueue = TemporalConfig{}.withDefaults().TaskQueue
	}
	return &temporalDispatcher{
		log:       baseLog.With("component", "TemporalDispatcher"),
		client:    c,
		taskQueue: taskQueue,
	}
}

func (d *temporalDispatcher) Dispatch(ctx context.Context, ev Event) error {
	if d.client == nil {
		return fmt.Errorf("temporal not configured")
	}
	wf := ev.Type.Workflow()
	if wf == "" {
		return fmt.Errorf("no workflow for event %q", ev.Type)
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                       ev.ID(),
		TaskQueue:                d.taskQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	run, err := d.client.ExecuteWorkflow(ctx, opts, wf, ev)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return nil
		}
		return fmt.Errorf("start %s workflow: %w", wf, err)
	}
	d.log.Info("workflow started", "workflow", wf, "workflow_id", run.GetID(), "run_id", run.GetRunID(), "student_id", ev.StudentID)
	return nil
}
