package workflow

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

// JobQueue turns trigger events into job_run rows for the in-process worker.
// Events whose workflow has no local job type go to the fallback.
type JobQueue struct {
	log      *logger.Logger
	repo     jobs.JobRunRepo
	local    map[string]bool
	fallback Dispatcher
}

func NewJobQueue(baseLog *logger.Logger, repo jobs.JobRunRepo, jobTypes []string, fallback Dispatcher) *JobQueue {
	if fallback == nil {
		fallback = NewLog(baseLog)
	}
	local := make(map[string]bool, len(jobTypes))
	for _, t := range jobTypes {
		local[t] = true
	}
	return &JobQueue{
		log:      baseLog.With("component", "WorkflowJobQueue"),
		repo:     repo,
		local:    local,
		fallback: fallback,
	}
}

// Dispatch skips the event while a job of the same type is still queued or
// running for the student.
func (q *JobQueue) Dispatch(ctx context.Context, ev Event) error {
	jobType := ev.Type.Workflow()
	if !q.local[jobType] {
		return q.fallback.Dispatch(ctx, ev)
	}
	dbc := dbctx.Context{Ctx: ctx}
	var sid *uuid.UUID
	if ev.StudentID != uuid.Nil {
		id := ev.StudentID
		sid = &id
	}
	open, err := q.repo.ExistsRunnable(dbc, sid, jobType)
	if err != nil {
		return err
	}
	if open {
		q.log.Debug("job already open; trigger skipped", "job_type", jobType, "student_id", ev.StudentID)
		return nil
	}
	payload, err := json.Marshal(map[string]any{
		"student_id": ev.StudentID.String(),
		"reason":     ev.Reason,
		"event":      string(ev.Type),
	})
	if err != nil {
		return err
	}
	created, err := q.repo.Create(dbc, []*types.JobRun{{
		StudentID: sid,
		JobType:   jobType,
		Payload:   datatypes.JSON(payload),
	}})
	if err != nil {
		return err
	}
	q.log.Info("workflow job queued", "job_type", jobType, "job_id", created[0].ID, "student_id", ev.StudentID)
	return nil
}
