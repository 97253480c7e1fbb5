package observations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AcademicObservation struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID            uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:ux_academic_obs_key,priority:1" json:"student_id"`
	AcademicYear         string     `gorm:"column:academic_year;not null;index;uniqueIndex:ux_academic_obs_key,priority:2" json:"academic_year"`
	ClassGrade           string     `gorm:"column:class_grade" json:"class_grade,omitempty"`
	Subject              string     `gorm:"column:subject;not null;uniqueIndex:ux_academic_obs_key,priority:3" json:"subject"`
	AssessmentType       string     `gorm:"column:assessment_type;not null;uniqueIndex:ux_academic_obs_key,priority:4" json:"assessment_type"`
	MarksObtained        float64    `gorm:"column:marks_obtained;not null" json:"marks_obtained"`
	TotalMarks           float64    `gorm:"column:total_marks;not null" json:"total_marks"`
	Percentage           float64    `gorm:"column:percentage;not null" json:"percentage"`
	LetterGrade          string     `gorm:"column:letter_grade" json:"letter_grade,omitempty"`
	ClassRank            *int       `gorm:"column:class_rank" json:"class_rank,omitempty"`
	AttendancePercent    *float64   `gorm:"column:attendance_percent" json:"attendance_percent,omitempty"`
	HomeworkPercent      *float64   `gorm:"column:homework_percent" json:"homework_percent,omitempty"`
	ParticipationPercent *float64   `gorm:"column:participation_percent" json:"participation_percent,omitempty"`
	TeacherComments      string     `gorm:"column:teacher_comments" json:"teacher_comments,omitempty"`
	AssessmentDate       *time.Time `gorm:"column:assessment_date;index" json:"assessment_date,omitempty"`
	SourceTag            string     `gorm:"column:source_tag;not null" json:"source_tag"`
	SourceUploadID       *uuid.UUID `gorm:"type:uuid;column:source_upload_id;index" json:"source_upload_id,omitempty"`
	CreatedAt            time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"not null" json:"updated_at"`
}

func (AcademicObservation) TableName() string { return "academic_obs" }

func (o *AcademicObservation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.SourceTag == "" {
		o.SourceTag = SourceManual
	}
	return nil
}

// ObservedAt is the time axis used for slopes and trends.
func (o *AcademicObservation) ObservedAt() time.Time {
	if o.AssessmentDate != nil && !o.AssessmentDate.IsZero() {
		return *o.AssessmentDate
	}
	return o.CreatedAt
}

// LetterGradeFor derives a letter grade from a percentage.
func LetterGradeFor(pct float64) string {
	switch {
	case pct >= 90:
		return "A+"
	case pct >= 80:
		return "A"
	case pct >= 70:
		return "B"
	case pct >= 60:
		return "C"
	case pct >= 50:
		return "D"
	default:
		return "F"
	}
}
