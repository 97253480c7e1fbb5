package summaries

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type YearSummaryRepo interface {
	// Upsert writes s keyed by (student_id, academic_year).
	Upsert(dbc dbctx.Context, s *types.YearSummary) error
	Get(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*types.YearSummary, error)
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.YearSummary, error)
	Delete(dbc dbctx.Context, studentID uuid.UUID, academicYear string) error
}

type yearSummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewYearSummaryRepo(db *gorm.DB, baseLog *logger.Logger) YearSummaryRepo {
	return &yearSummaryRepo{
		db:  db,
		log: baseLog.With("repo", "YearSummaryRepo"),
	}
}

var upsertColumns = []string{
	"academic_count",
	"psychological_count",
	"physical_count",
	"overall_academic_average",
	"emotional_wellbeing_score",
	"fitness_level",
	"annual_epr_score",
	"epr_performance_band",
	"improvement_trends",
	"areas_of_concern",
	"recommendations",
	"last_updated",
}

func (r *yearSummaryRepo) Upsert(dbc dbctx.Context, s *types.YearSummary) error {
	if s == nil {
		return nil
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "academic_year"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(s).Error
}

func (r *yearSummaryRepo) Get(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*types.YearSummary, error) {
	var s types.YearSummary
	err := dbc.DB(r.db).
		Where("student_id = ? AND academic_year = ?", studentID, academicYear).
		Limit(1).
		Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *yearSummaryRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.YearSummary, error) {
	var out []*types.YearSummary
	err := dbc.DB(r.db).
		Where("student_id = ?", studentID).
		Order("academic_year ASC").
		Find(&out).Error
	return out, err
}

func (r *yearSummaryRepo) Delete(dbc dbctx.Context, studentID uuid.UUID, academicYear string) error {
	return dbc.DB(r.db).
		Where("student_id = ? AND academic_year = ?", studentID, academicYear).
		Delete(&types.YearSummary{}).Error
}
