package observations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CategorySDQ     = "sdq"
	CategoryDASS    = "dass21"
	CategoryPERMA   = "perma"
	CategoryGeneral = "general"
)

// PsychologicalObservation stores raw instrument numbers; composites are
// written back by the psychological scorer.
type PsychologicalObservation struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID      uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	AssessmentDate time.Time `gorm:"column:assessment_date;not null;index" json:"assessment_date"`
	AcademicYear   string    `gorm:"column:academic_year;not null;index" json:"academic_year"`
	Category       string    `gorm:"column:category;not null" json:"category"`
	InstrumentName string    `gorm:"column:instrument_name" json:"instrument_name,omitempty"`

	SDQEmotional     *float64 `gorm:"column:sdq_emotional" json:"sdq_emotional,omitempty"`
	SDQConduct       *float64 `gorm:"column:sdq_conduct" json:"sdq_conduct,omitempty"`
	SDQHyperactivity *float64 `gorm:"column:sdq_hyperactivity" json:"sdq_hyperactivity,omitempty"`
	SDQPeer          *float64 `gorm:"column:sdq_peer" json:"sdq_peer,omitempty"`
	SDQProsocial     *float64 `gorm:"column:sdq_prosocial" json:"sdq_prosocial,omitempty"`

	DASSDepression *float64 `gorm:"column:dass_depression" json:"dass_depression,omitempty"`
	DASSAnxiety    *float64 `gorm:"column:dass_anxiety" json:"dass_anxiety,omitempty"`
	DASSStress     *float64 `gorm:"column:dass_stress" json:"dass_stress,omitempty"`

	PERMAPositiveEmotion *float64 `gorm:"column:perma_positive_emotion" json:"perma_positive_emotion,omitempty"`
	PERMAEngagement      *float64 `gorm:"column:perma_engagement" json:"perma_engagement,omitempty"`
	PERMARelationships   *float64 `gorm:"column:perma_relationships" json:"perma_relationships,omitempty"`
	PERMAMeaning         *float64 `gorm:"column:perma_meaning" json:"perma_meaning,omitempty"`
	PERMAAccomplishment  *float64 `gorm:"column:perma_accomplishment" json:"perma_accomplishment,omitempty"`

	CustomScores datatypes.JSONType[map[string]float64] `gorm:"column:custom_scores" json:"custom_scores"`
	ScaleTag     string                                 `gorm:"column:scale_tag" json:"scale_tag,omitempty"`

	MoodNotes        string `gorm:"column:mood_notes" json:"mood_notes,omitempty"`
	CounselorNotes   string `gorm:"column:counselor_notes" json:"counselor_notes,omitempty"`
	BehaviorObserved string `gorm:"column:behavior_observed" json:"behavior_observed,omitempty"`

	SDQScore       *float64 `gorm:"column:sdq_score" json:"sdq_score,omitempty"`
	DASSScore      *float64 `gorm:"column:dass_score" json:"dass_score,omitempty"`
	PERMAScore     *float64 `gorm:"column:perma_score" json:"perma_score,omitempty"`
	CompositeScore *float64 `gorm:"column:composite_score" json:"composite_score,omitempty"`

	SourceTag      string     `gorm:"column:source_tag;not null" json:"source_tag"`
	SourceUploadID *uuid.UUID `gorm:"type:uuid;column:source_upload_id;index" json:"source_upload_id,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (PsychologicalObservation) TableName() string { return "psychological_obs" }

func (o *PsychologicalObservation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.SourceTag == "" {
		o.SourceTag = SourceManual
	}
	if o.Category == "" {
		o.Category = CategoryGeneral
	}
	if o.AssessmentDate.IsZero() {
		o.AssessmentDate = time.Now().UTC()
	}
	return nil
}
