package observations

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type PsychologicalRepo interface {
	Create(dbc dbctx.Context, rows []*types.PsychologicalObservation) ([]*types.PsychologicalObservation, error)
	GetByID(dbc dbctx.Context, studentID, id uuid.UUID) (*types.PsychologicalObservation, error)
	Save(dbc dbctx.Context, row *types.PsychologicalObservation) error
	Delete(dbc dbctx.Context, studentID, id uuid.UUID) error
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.PsychologicalObservation, error)
	Latest(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*types.PsychologicalObservation, error)
	CountByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (int64, error)
	DetachUpload(dbc dbctx.Context, uploadID uuid.UUID) (int64, error)
}

type psychologicalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPsychologicalRepo(db *gorm.DB, baseLog *logger.Logger) PsychologicalRepo {
	return &psychologicalRepo{
		db:  db,
		log: baseLog.With("repo", "PsychologicalRepo"),
	}
}

func (r *psychologicalRepo) Create(dbc dbctx.Context, rows []*types.PsychologicalObservation) ([]*types.PsychologicalObservation, error) {
	if len(rows) == 0 {
		return []*types.PsychologicalObservation{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *psychologicalRepo) GetByID(dbc dbctx.Context, studentID, id uuid.UUID) (*types.PsychologicalObservation, error) {
	var row types.PsychologicalObservation
	err := dbc.DB(r.db).
		Where("id = ? AND student_id = ?", id, studentID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *psychologicalRepo) Save(dbc dbctx.Context, row *types.PsychologicalObservation) error {
	return dbc.DB(r.db).Save(row).Error
}

func (r *psychologicalRepo) Delete(dbc dbctx.Context, studentID, id uuid.UUID) error {
	return dbc.DB(r.db).
		Where("id = ? AND student_id = ?", id, studentID).
		Delete(&types.PsychologicalObservation{}).Error
}

func (r *psychologicalRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.PsychologicalObservation, error) {
	var out []*types.PsychologicalObservation
	q := dbc.DB(r.db).Where("student_id = ?", studentID)
	if academicYear != "" {
		q = q.Where("academic_year = ?", academicYear)
	}
	err := q.Order("assessment_date ASC").Order("created_at ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (r *psychologicalRepo) Latest(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*types.PsychologicalObservation, error) {
	var row types.PsychologicalObservation
	q := dbc.DB(r.db).Where("student_id = ?", studentID)
	if academicYear != "" {
		q = q.Where("academic_year = ?", academicYear)
	}
	if err := q.Order("assessment_date DESC").Order("created_at DESC").Order("id DESC").Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *psychologicalRepo) CountByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (int64, error) {
	var n int64
	q := dbc.DB(r.db).Model(&types.PsychologicalObservation{}).Where("student_id = ?", studentID)
	if academicYear != "" {
		q = q.Where("academic_year = ?", academicYear)
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *psychologicalRepo) DetachUpload(dbc dbctx.Context, uploadID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.PsychologicalObservation{}).
		Where("source_upload_id = ?", uploadID).
		Update("source_upload_id", nil)
	return res.RowsAffected, res.Error
}
