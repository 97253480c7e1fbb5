package issues

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/edusight-backend/internal/domain"
	domainissues "github.com/yungbote/edusight-backend/internal/domain/issues"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type Filter struct {
	StudentID     uuid.UUID
	UploadID      *uuid.UUID
	ObservationID *uuid.UUID
	OpenOnly      bool
}

type ValidationIssueRepo interface {
	Create(dbc dbctx.Context, rows []*types.ValidationIssue) ([]*types.ValidationIssue, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ValidationIssue, error)
	List(dbc dbctx.Context, f Filter) ([]*types.ValidationIssue, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// DismissForObservation closes every non-terminal issue attached to the observation.
	DismissForObservation(dbc dbctx.Context, observationID uuid.UUID, note string) (int64, error)
	DismissForUpload(dbc dbctx.Context, uploadID uuid.UUID, note string) (int64, error)
}

type validationIssueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewValidationIssueRepo(db *gorm.DB, baseLog *logger.Logger) ValidationIssueRepo {
	return &validationIssueRepo{
		db:  db,
		log: baseLog.With("repo", "ValidationIssueRepo"),
	}
}

func (r *validationIssueRepo) Create(dbc dbctx.Context, rows []*types.ValidationIssue) ([]*types.ValidationIssue, error) {
	if len(rows) == 0 {
		return []*types.ValidationIssue{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *validationIssueRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ValidationIssue, error) {
	var row types.ValidationIssue
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *validationIssueRepo) List(dbc dbctx.Context, f Filter) ([]*types.ValidationIssue, error) {
	q := dbc.DB(r.db).Model(&types.ValidationIssue{})
	if f.StudentID != uuid.Nil {
		q = q.Where("student_id = ?", f.StudentID)
	}
	if f.UploadID != nil {
		q = q.Where("upload_id = ?", *f.UploadID)
	}
	if f.ObservationID != nil {
		q = q.Where("observation_id = ?", *f.ObservationID)
	}
	if f.OpenOnly {
		q = q.Where("status IN ?", []string{string(domainissues.StatusOpen), string(domainissues.StatusInProgress)})
	}
	var out []*types.ValidationIssue
	err := q.Order("created_at ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (r *validationIssueRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.DB(r.db).Model(&types.ValidationIssue{}).Where("id = ?", id).Updates(updates).Error
}

func (r *validationIssueRepo) DismissForObservation(dbc dbctx.Context, observationID uuid.UUID, note string) (int64, error) {
	return r.dismiss(dbc, "observation_id = ?", observationID, note)
}

func (r *validationIssueRepo) DismissForUpload(dbc dbctx.Context, uploadID uuid.UUID, note string) (int64, error) {
	return r.dismiss(dbc, "upload_id = ?", uploadID, note)
}

func (r *validationIssueRepo) dismiss(dbc dbctx.Context, where string, id uuid.UUID, note string) (int64, error) {
	now := time.Now()
	res := dbc.DB(r.db).
		Model(&types.ValidationIssue{}).
		Where(where, id).
		Where("status IN ?", []string{string(domainissues.StatusOpen), string(domainissues.StatusInProgress)}).
		Updates(map[string]interface{}{
			"status":          domainissues.StatusDismissed,
			"resolution_note": note,
			"resolved_at":     now,
			"updated_at":      now,
		})
	return res.RowsAffected, res.Error
}
