package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	"github.com/yungbote/edusight-backend/internal/jobs/pipeline/epr_batch_recalculation"
	"github.com/yungbote/edusight-backend/internal/jobs/pipeline/epr_recompute"
	"github.com/yungbote/edusight-backend/internal/platform/ctxutil"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, studentID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	// EnqueueRecompute queues one student's recompute unless one is already
	// queued or running. The bool reports whether a job was created.
	EnqueueRecompute(dbc dbctx.Context, studentID uuid.UUID, force bool, years []string) (*types.JobRun, bool, error)
	// EnqueueBatchRecalculation rebuilds the listed students, or every
	// student when ids is empty.
	EnqueueBatchRecalculation(dbc dbctx.Context, ids []uuid.UUID) (*types.JobRun, error)
	Get(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	Cancel(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	// Restart requeues a failed or canceled job with a fresh attempt budget.
	Restart(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	log  *logger.Logger
	repo jobs.JobRunRepo
}

func NewJobService(baseLog *logger.Logger, repo jobs.JobRunRepo) JobService {
	return &jobService{
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, studentID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if jobType == "" {
		return nil, errs.New(errs.KindInvalidArgument, "missing job_type", errs.ErrInvalidArgument)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		ID:        uuid.New(),
		StudentID: studentID,
		JobType:   jobType,
		Status:    domainjobs.StatusQueued,
		Stage:     "queued",
		Payload:   datatypes.JSON(b),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, err
	}
	s.log.Info("job enqueued", "job_id", job.ID, "job_type", jobType, "student_id", studentID)
	return job, nil
}

func (s *jobService) EnqueueRecompute(dbc dbctx.Context, studentID uuid.UUID, force bool, years []string) (*types.JobRun, bool, error) {
	if studentID == uuid.Nil {
		return nil, false, errs.New(errs.KindInvalidArgument, "student id required", errs.ErrInvalidArgument)
	}
	open, err := s.repo.ExistsRunnable(dbc, &studentID, epr_recompute.JobType)
	if err != nil {
		return nil, false, err
	}
	if open {
		return nil, false, nil
	}
	payload := map[string]any{"student_id": studentID.String(), "force": force}
	if len(years) > 0 {
		payload["years"] = years
	}
	job, err := s.Enqueue(dbc, epr_recompute.JobType, &studentID, payload)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) EnqueueBatchRecalculation(dbc dbctx.Context, ids []uuid.UUID) (*types.JobRun, error) {
	payload := map[string]any{}
	if len(ids) > 0 {
		list := make([]string, 0, len(ids))
		for _, id := range ids {
			list = append(list, id.String())
		}
		payload["student_ids"] = list
	}
	return s.Enqueue(dbc, epr_batch_recalculation.JobType, nil, payload)
}

func (s *jobService) Get(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	rows, err := s.repo.GetByIDs(dbc, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, errs.New(errs.KindNotFound, "job not found", errs.ErrNotFound)
	}
	return rows[0], nil
}

func (s *jobService) Cancel(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	job, err := s.Get(dbc, jobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case domainjobs.StatusSucceeded, domainjobs.StatusCanceled:
		return job, nil
	}
	now := time.Now().UTC()
	changed, err := s.repo.UpdateFieldsUnlessStatus(dbc, jobID, []string{domainjobs.StatusSucceeded, domainjobs.StatusCanceled}, map[string]interface{}{
		"status":     domainjobs.StatusCanceled,
		"stage":      "canceled",
		"locked_at":  nil,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Info("job canceled", "job_id", jobID, "job_type", job.JobType)
	}
	return s.Get(dbc, jobID)
}

func (s *jobService) Restart(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	job, err := s.Get(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domainjobs.StatusFailed && job.Status != domainjobs.StatusCanceled {
		return nil, errs.New(errs.KindInvalidArgument, "only failed or canceled jobs can be restarted", errs.ErrInvalidArgument)
	}
	if err := s.repo.UpdateFields(dbc, jobID, map[string]interface{}{
		"status":        domainjobs.StatusQueued,
		"stage":         "queued",
		"progress":      0,
		"attempts":      0,
		"error":         "",
		"last_error_at": nil,
		"locked_at":     nil,
		"updated_at":    time.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	return s.Get(dbc, jobID)
}
