package students

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PlanBasic    = "basic"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// StudentProfile holds the per-student rollups the recompute controller keeps
// in step with the observation tables. ID is the student id.
type StudentProfile struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string                      `gorm:"column:name" json:"name,omitempty"`
	DateOfBirth         *time.Time                  `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
	Interests           datatypes.JSONSlice[string] `gorm:"column:interests" json:"interests"`
	HasAcademic         bool                        `gorm:"column:has_academic;not null;default:false" json:"has_academic"`
	HasPsychological    bool                        `gorm:"column:has_psychological;not null;default:false" json:"has_psychological"`
	HasPhysical         bool                        `gorm:"column:has_physical;not null;default:false" json:"has_physical"`
	AcademicYears       datatypes.JSONSlice[string] `gorm:"column:academic_years" json:"academic_years"`
	CurrentAcademicYear string                      `gorm:"column:current_academic_year" json:"current_academic_year,omitempty"`
	PlanTier            string                      `gorm:"column:plan_tier;not null;default:'basic'" json:"plan_tier"`
	CompletionPercent   int                         `gorm:"column:completion_percent;not null;default:0" json:"completion_percent"`
	LastMutationAt      *time.Time                  `gorm:"column:last_mutation_at;index" json:"last_mutation_at,omitempty"`
	CreatedAt           time.Time                   `gorm:"not null;index" json:"created_at"`
	UpdatedAt           time.Time                   `gorm:"not null" json:"updated_at"`
}

func (StudentProfile) TableName() string { return "student_profile" }

func (p *StudentProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PlanTier == "" {
		p.PlanTier = PlanBasic
	}
	return nil
}

// AgeAt returns whole years of age at t, or nil when the birth date is unknown.
func (p *StudentProfile) AgeAt(t time.Time) *int {
	if p == nil || p.DateOfBirth == nil || p.DateOfBirth.IsZero() {
		return nil
	}
	dob := p.DateOfBirth.UTC()
	t = t.UTC()
	age := t.Year() - dob.Year()
	if t.Month() < dob.Month() || (t.Month() == dob.Month() && t.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}
