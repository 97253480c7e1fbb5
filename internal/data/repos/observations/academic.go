package observations

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type AcademicRepo interface {
	Create(dbc dbctx.Context, rows []*types.AcademicObservation) ([]*types.AcademicObservation, error)
	GetByID(dbc dbctx.Context, studentID, id uuid.UUID) (*types.AcademicObservation, error)
	GetByKey(dbc dbctx.Context, studentID uuid.UUID, year, subject, assessmentType string) (*types.AcademicObservation, error)
	Save(dbc dbctx.Context, row *types.AcademicObservation) error
	Delete(dbc dbctx.Context, studentID, id uuid.UUID) error
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.AcademicObservation, error)
	CountByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (int64, error)
	DetachUpload(dbc dbctx.Context, uploadID uuid.UUID) (int64, error)
}

type academicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAcademicRepo(db *gorm.DB, baseLog *logger.Logger) AcademicRepo {
	return &academicRepo{
		db:  db,
		log: baseLog.With("repo", "AcademicRepo"),
	}
}

func (r *academicRepo) Create(dbc dbctx.Context, rows []*types.AcademicObservation) ([]*types.AcademicObservation, error) {
	if len(rows) == 0 {
		return []*types.AcademicObservation{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *academicRepo) GetByID(dbc dbctx.Context, studentID, id uuid.UUID) (*types.AcademicObservation, error) {
	var row types.AcademicObservation
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

func (r *academicRepo) GetByKey(dbc dbctx.Context, studentID uuid.UUID, year, subject, assessmentType string) (*types.AcademicObservation, error) {
	var row types.AcademicObservation
	err := dbc.DB(r.db).
		Where("student_id = ? AND academic_year = ? AND subject = ? AND assessment_type = ?", studentID, year, subject, assessmentType).
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

func (r *academicRepo) Save(dbc dbctx.Context, row *types.AcademicObservation) error {
	return dbc.DB(r.db).Save(row).Error
}

func (r *academicRepo) Delete(dbc dbctx.Context, studentID, id uuid.UUID) error {
	return dbc.DB(r.db).
		Where("id = ? AND student_id = ?", id, studentID).
		Delete(&types.AcademicObservation{}).Error
}

func (r *academicRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.AcademicObservation, error) {
	var out []*types.AcademicObservation
	q := dbc.DB(r.db).Where("student_id = ?", studentID)
	if academicYear != "" {
		q = q.Where("academic_year = ?", academicYear)
	}
	err := q.Order("COALESCE(assessment_date, created_at) ASC").Order("created_at ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (r *academicRepo) CountByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (int64, error) {
	var n int64
	q := dbc.DB(r.db).Model(&types.AcademicObservation{}).Where("student_id = ?", studentID)
	if academicYear != "" {
		q = q.Where("academic_year = ?", academicYear)
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *academicRepo) DetachUpload(dbc dbctx.Context, uploadID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.AcademicObservation{}).
		Where("source_upload_id = ?", uploadID).
		Update("source_upload_id", nil)
	return res.RowsAffected, res.Error
}
