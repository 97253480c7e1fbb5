package jobrun

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	eprworkflow "github.com/yungbote/edusight-backend/internal/workflow"
)

// BatchRecalculation runs the student's full rebuild as a job_run row so the
// outcome is visible next to the jobs the DB worker runs.
func BatchRecalculation(ctx workflow.Context, ev eprworkflow.Event) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy:         nil, // the dispatcher's workflow retry policy covers job failures
	})

	var out TickResult
	req := Request{JobType: eprworkflow.WorkflowBatchRecalculation, Event: ev}
	if err := workflow.ExecuteActivity(ctx, ActivityRun, req).Get(ctx, &out); err != nil {
		return err
	}
	switch out.Status {
	case domainjobs.StatusSucceeded, domainjobs.StatusCanceled:
		workflow.GetLogger(ctx).Info("batch recalculation finished", "job_id", out.JobID, "status", out.Status)
		return nil
	default:
		return fmt.Errorf("job %s %s (stage=%s): %s", out.JobID, out.Status, out.Stage, out.Error)
	}
}
