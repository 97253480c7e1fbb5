package observations

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type PhysicalRepo interface {
	Create(dbc dbctx.Context, rows []*types.PhysicalObservation) ([]*types.PhysicalObservation, error)
	GetByID(dbc dbctx.Context, studentID, id uuid.UUID) (*types.PhysicalObservation, error)
	Save(dbc dbctx.Context, row *types.PhysicalObservation) error
	Delete(dbc dbctx.Context, studentID, id uuid.UUID) error
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.PhysicalObservation, error)
	Latest(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*types.PhysicalObservation, error)
	CountByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (int64, error)
	DetachUpload(dbc dbctx.Context, uploadID uuid.UUID) (int64, error)
}

type physicalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPhysicalRepo(db *gorm.DB, baseLog *logger.Logger) PhysicalRepo {
	return &physicalRepo{
		db:  db,
		log: baseLog.With("repo", "PhysicalRepo"),
	}
}

func (r *physicalRepo) Create(dbc dbctx.Context, rows []*types.PhysicalObservation) ([]*types.PhysicalObservation, error) {
	if len(rows) == 0 {
		return []*types.PhysicalObservation{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *physicalRepo) GetByID(dbc dbctx.Context, studentID, id uuid.UUID) (*types.PhysicalObservation, error) {
	var row types.PhysicalObservation
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

func (r *physicalRepo) Save(dbc dbctx.Context, row *types.PhysicalObservation) error {
	return dbc.DB(r.db).Save(row).Error
}

func (r *physicalRepo) Delete(dbc dbctx.Context, studentID, id uuid.UUID) error {
	return dbc.DB(r.db).
		Where("id = ? AND student_id = ?", id, studentID).
		Delete(&types.PhysicalObservation{}).Error
}

func (r *physicalRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.PhysicalObservation, error) {
	var out []*types.PhysicalObservation
	q := dbc.DB(r.db).Where("student_id = ?", studentID)
	if academicYear != "" {
		q = q.Where("academic_year = ?", academicYear)
	}
	err := q.Order("measurement_date ASC").Order("created_at ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (r *physicalRepo) Latest(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*types.PhysicalObservation, error) {
	var row types.PhysicalObservation
	q := dbc.DB(r.db).Where("student_id = ?", studentID)
	if academicYear != "" {
		q = q.Where("academic_year = ?", academicYear)
	}
	if err := q.Order("measurement_date DESC").Order("created_at DESC").Order("id DESC").Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *physicalRepo) CountByStudent(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (int64, error) {
	var n int64
	q := dbc.DB(r.db).Model(&types.PhysicalObservation{}).Where("student_id = ?", studentID)
	if academicYear != "" {
		q = q.Where("academic_year = ?", academicYear)
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *physicalRepo) DetachUpload(dbc dbctx.Context, uploadID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.PhysicalObservation{}).
		Where("source_upload_id = ?", uploadID).
		Update("source_upload_id", nil)
	return res.RowsAffected, res.Error
}
