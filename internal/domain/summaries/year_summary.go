package summaries

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// YearSummary is derived from the observations of one academic year and is
// only ever written by the summary builder.
type YearSummary struct {
	ID                      uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID               uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:ux_year_summary_key,priority:1" json:"student_id"`
	AcademicYear            string                      `gorm:"column:academic_year;not null;uniqueIndex:ux_year_summary_key,priority:2" json:"academic_year"`
	AcademicCount           int                         `gorm:"column:academic_count;not null;default:0" json:"academic_count"`
	PsychologicalCount      int                         `gorm:"column:psychological_count;not null;default:0" json:"psychological_count"`
	PhysicalCount           int                         `gorm:"column:physical_count;not null;default:0" json:"physical_count"`
	OverallAcademicAverage  *float64                    `gorm:"column:overall_academic_average" json:"overall_academic_average,omitempty"`
	EmotionalWellbeingScore *float64                    `gorm:"column:emotional_wellbeing_score" json:"emotional_wellbeing_score,omitempty"`
	FitnessLevel            *float64                    `gorm:"column:fitness_level" json:"fitness_level,omitempty"`
	AnnualEPRScore          *float64                    `gorm:"column:annual_epr_score" json:"annual_epr_score,omitempty"`
	EPRPerformanceBand      string                      `gorm:"column:epr_performance_band" json:"epr_performance_band,omitempty"`
	ImprovementTrends       datatypes.JSONSlice[string] `gorm:"column:improvement_trends" json:"improvement_trends"`
	AreasOfConcern          datatypes.JSONSlice[string] `gorm:"column:areas_of_concern" json:"areas_of_concern"`
	Recommendations         datatypes.JSONSlice[string] `gorm:"column:recommendations" json:"recommendations"`
	LastUpdated             time.Time                   `gorm:"column:last_updated;not null" json:"last_updated"`
	CreatedAt               time.Time                   `gorm:"not null" json:"created_at"`
}

func (YearSummary) TableName() string { return "year_summary" }

func (s *YearSummary) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
