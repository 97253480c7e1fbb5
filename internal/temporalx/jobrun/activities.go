package jobrun

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/edusight-backend/internal/jobs/runtime"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type Activities struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Jobs     jobs.JobRunRepo
	Registry *jobrt.Registry
	Notify   jobrt.Notifier
}

// Run records a job_run for the event and executes its handler in-process.
// The row is created as running with a fresh heartbeat so the DB worker does
// not claim it as well.
func (a *Activities) Run(ctx context.Context, req Request) (TickResult, error) {
	var res TickResult
	if a == nil || a.DB == nil || a.Jobs == nil || a.Registry == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	h, ok := a.Registry.Get(req.JobType)
	if !ok {
		return res, fmt.Errorf("jobrun: no handler registered for job_type=%s", req.JobType)
	}

	payload, err := json.Marshal(map[string]any{
		"student_id": req.Event.StudentID.String(),
		"reason":     req.Event.Reason,
		"event":      string(req.Event.Type),
	})
	if err != nil {
		return res, err
	}
	now := time.Now().UTC()
	var sid *uuid.UUID
	if req.Event.StudentID != uuid.Nil {
		id := req.Event.StudentID
		sid = &id
	}
	created, err := a.Jobs.Create(dbctx.Context{Ctx: ctx}, []*types.JobRun{{
		StudentID:   sid,
		JobType:     req.JobType,
		Status:      domainjobs.StatusRunning,
		Stage:       "running",
		Attempts:    1,
		LockedAt:    &now,
		HeartbeatAt: &now,
		Payload:     datatypes.JSON(payload),
	}})
	if err != nil {
		return res, err
	}
	job := created[0]
	res.JobID = job.ID.String()

	stopHB := a.startHeartbeat(ctx, job.ID)
	defer stopHB()

	jc := jobrt.NewContext(ctx, a.DB, job, a.Jobs, a.Notify)
	func() {
		defer func() {
			if r := recover(); r != nil {
				if a.Log != nil {
					a.Log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
				}
				jc.Fail("panic", fmt.Errorf("panic: %v", r))
			}
		}()
		if runErr := h.Run(jc); runErr != nil {
			jc.Fail("run", runErr)
		}
	}()

	rows, err := a.Jobs.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{job.ID})
	if err != nil {
		return res, err
	}
	if len(rows) == 0 {
		return res, fmt.Errorf("jobrun: job %s not found after run", job.ID)
	}
	updated := rows[0]
	// A handler that returned nil without a terminal status counts as done.
	if updated.Status == domainjobs.StatusRunning {
		if a.Log != nil {
			a.Log.Warn("Job handler returned without terminal status; marking succeeded", "job_id", job.ID, "job_type", job.JobType)
		}
		jc.Succeed("done", nil)
		updated = jc.Job
	}
	res.Status = updated.Status
	res.Stage = updated.Stage
	res.Progress = updated.Progress
	res.Error = updated.Error
	return res, nil
}

func (a *Activities) startHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		temporalHB := time.NewTicker(10 * time.Second)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(30 * time.Second)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				activity.RecordHeartbeat(ctx)
			case <-dbHB.C:
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx}, jobID)
			}
		}
	}()
	return func() { close(done) }
}
