package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/edusight-backend/internal/domain"
	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

// ClaimPolicy decides which rows a worker may pick up.
type ClaimPolicy struct {
	// MaxAttempts excludes failed or stale rows that already used every try.
	MaxAttempts int
	// RetryDelay is the minimum gap between a failure and the next attempt.
	RetryDelay time.Duration
	// StaleRunning is how long a running row may go without a heartbeat
	// before another worker takes it over.
	StaleRunning time.Duration
	// JobTypes limits the claim; empty means any type.
	JobTypes []string
}

type JobRunRepo interface {
	Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.JobRun, error)
	// ClaimNextRunnable marks the oldest runnable row running and returns it,
	// or nil when nothing is due.
	ClaimNextRunnable(dbc dbctx.Context, p ClaimPolicy) (*types.JobRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateFieldsUnlessStatus applies updates unless the row is in one of
	// statuses, and reports whether a row changed.
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, statuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	// ExistsRunnable reports whether a queued or running job of jobType exists
	// for the student. A nil studentID matches jobs with no student.
	ExistsRunnable(dbc dbctx.Context, studentID *uuid.UUID, jobType string) (bool, error)
}

type jobRunRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	clock func() time.Time
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:    db,
		log:   baseLog.With("repo", "JobRunRepo"),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (r *jobRunRepo) Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	if len(jobs) == 0 {
		return []*types.JobRun{}, nil
	}
	if err := dbc.DB(r.db).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRunRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.JobRun, error) {
	out := []*types.JobRun{}
	if len(ids) == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// runnable is the claim predicate: queued rows; failed rows with attempts
// left whose last failure is older than RetryDelay; running rows with
// attempts left whose heartbeat went quiet for StaleRunning.
func runnable(tx *gorm.DB, p ClaimPolicy, now time.Time) *gorm.DB {
	queued := tx.Where("status = ?", domainjobs.StatusQueued)
	retry := tx.Where("status = ? AND attempts < ?", domainjobs.StatusFailed, p.MaxAttempts).
		Where(tx.Where("last_error_at IS NULL").Or("last_error_at < ?", now.Add(-p.RetryDelay)))
	stale := tx.Where("status = ? AND attempts < ?", domainjobs.StatusRunning, p.MaxAttempts).
		Where("heartbeat_at IS NOT NULL AND heartbeat_at < ?", now.Add(-p.StaleRunning))
	q := tx.Where(queued.Or(retry).Or(stale))
	if len(p.JobTypes) > 0 {
		q = q.Where("job_type IN ?", p.JobTypes)
	}
	return q
}

// ClaimNextRunnable walks rows in created_at order. On postgres the row is
// locked with SKIP LOCKED so concurrent workers never share a job.
func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, p ClaimPolicy) (*types.JobRun, error) {
	now := r.clock()
	var claimed *types.JobRun
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		q := runnable(tx.Session(&gorm.Session{NewDB: true}), p, now)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var job types.JobRun
		if err := q.Order("created_at ASC").First(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		err := tx.Model(&types.JobRun{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
			"status":       domainjobs.StatusRunning,
			"stage":        "running",
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
		if err != nil {
			return err
		}
		job.Status = domainjobs.StatusRunning
		job.Stage = "running"
		job.Attempts++
		job.LockedAt = &now
		job.HeartbeatAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	_, err := r.UpdateFieldsUnlessStatus(dbc, id, nil, updates)
	return err
}

func (r *jobRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, statuses []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = r.clock()
	}
	q := dbc.DB(r.db).Model(&types.JobRun{}).Where("id = ?", id)
	if len(statuses) > 0 {
		q = q.Where("status NOT IN ?", statuses)
	}
	res := q.Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// Heartbeat touches a running row; rows in any other state are left alone.
func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	now := r.clock()
	return dbc.DB(r.db).Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, domainjobs.StatusRunning).
		Updates(map[string]interface{}{"heartbeat_at": now, "updated_at": now}).Error
}

func (r *jobRunRepo) ExistsRunnable(dbc dbctx.Context, studentID *uuid.UUID, jobType string) (bool, error) {
	q := dbc.DB(r.db).Model(&types.JobRun{}).
		Where("job_type = ?", jobType).
		Where("status IN ?", []string{domainjobs.StatusQueued, domainjobs.StatusRunning})
	if studentID != nil {
		q = q.Where("student_id = ?", *studentID)
	} else {
		q = q.Where("student_id IS NULL")
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}
