package uploads

import (
	"encoding/json"
	"fmt"
)

type RowKind string

const (
	RowAcademic      RowKind = "academic"
	RowPsychological RowKind = "psychological"
	RowPhysical      RowKind = "physical"
	RowUnknown       RowKind = "unknown"
)

// ExtractedRow is one candidate observation recovered from an upload. Exactly
// one of the payload pointers is set, matching Kind.
type ExtractedRow struct {
	Kind   RowKind `json:"kind"`
	Sheet  string  `json:"sheet,omitempty"`
	Index  int     `json:"index"`
	Status string  `json:"status"`

	Academic      *AcademicRow      `json:"academic,omitempty"`
	Psychological *PsychologicalRow `json:"psychological,omitempty"`
	Physical      *PhysicalRow      `json:"physical,omitempty"`
	Unknown       *UnknownRow       `json:"unknown,omitempty"`
}

const (
	RowStatusExtracted = "extracted"
	RowStatusSkipped   = "skipped"
	RowStatusDropped   = "dropped"
)

type AcademicRow struct {
	Subject              string   `json:"subject"`
	AssessmentType       string   `json:"assessment_type,omitempty"`
	ClassGrade           string   `json:"class_grade,omitempty"`
	MarksObtained        *float64 `json:"marks_obtained,omitempty"`
	TotalMarks           *float64 `json:"total_marks,omitempty"`
	Percentage           *float64 `json:"percentage,omitempty"`
	LetterGrade          string   `json:"letter_grade,omitempty"`
	ClassRank            *float64 `json:"class_rank,omitempty"`
	AttendancePercent    *float64 `json:"attendance_percent,omitempty"`
	HomeworkPercent      *float64 `json:"homework_percent,omitempty"`
	ParticipationPercent *float64 `json:"participation_percent,omitempty"`
	TeacherComments      string   `json:"teacher_comments,omitempty"`
	AssessmentDate       string   `json:"assessment_date,omitempty"`
}

type PsychologicalRow struct {
	Category       string   `json:"category,omitempty"`
	InstrumentName string   `json:"instrument_name,omitempty"`
	AssessmentDate string   `json:"assessment_date,omitempty"`
	SDQEmotional   *float64 `json:"sdq_emotional,omitempty"`
	SDQConduct     *float64 `json:"sdq_conduct,omitempty"`
	SDQHyper       *float64 `json:"sdq_hyperactivity,omitempty"`
	SDQPeer        *float64 `json:"sdq_peer,omitempty"`
	SDQProsocial   *float64 `json:"sdq_prosocial,omitempty"`
	DASSDepression *float64 `json:"dass_depression,omitempty"`
	DASSAnxiety    *float64 `json:"dass_anxiety,omitempty"`
	DASSStress     *float64 `json:"dass_stress,omitempty"`
	PERMAPositive  *float64 `json:"perma_positive_emotion,omitempty"`
	PERMAEngage    *float64 `json:"perma_engagement,omitempty"`
	PERMARelations *float64 `json:"perma_relationships,omitempty"`
	PERMAMeaning   *float64 `json:"perma_meaning,omitempty"`
	PERMAAchieve   *float64 `json:"perma_accomplishment,omitempty"`
	MoodNotes      string   `json:"mood_notes,omitempty"`
}

type PhysicalRow struct {
	MeasurementDate    string   `json:"measurement_date,omitempty"`
	HeightCM           *float64 `json:"height_cm,omitempty"`
	WeightKG           *float64 `json:"weight_kg,omitempty"`
	BMI                *float64 `json:"bmi,omitempty"`
	BMIPercentile      *float64 `json:"bmi_percentile,omitempty"`
	Cardio             *float64 `json:"cardio,omitempty"`
	Strength           *float64 `json:"strength,omitempty"`
	Flexibility        *float64 `json:"flexibility,omitempty"`
	Endurance          *float64 `json:"endurance,omitempty"`
	PushUps            *float64 `json:"push_ups,omitempty"`
	SitUps             *float64 `json:"sit_ups,omitempty"`
	RunTimeSeconds     *float64 `json:"run_time_seconds,omitempty"`
	RestingHeartRate   *float64 `json:"resting_heart_rate,omitempty"`
	SystolicBP         *float64 `json:"systolic_bp,omitempty"`
	DiastolicBP        *float64 `json:"diastolic_bp,omitempty"`
	DailyActivityHours *float64 `json:"daily_activity_hours,omitempty"`
	SleepHours         *float64 `json:"sleep_hours,omitempty"`
	SleepQuality       *float64 `json:"sleep_quality,omitempty"`
	ScreenTimeHours    *float64 `json:"screen_time_hours,omitempty"`
	NutritionScore     *float64 `json:"nutrition_score,omitempty"`
}

// UnknownRow keeps the raw cells of a row whose domain could not be detected.
type UnknownRow struct {
	Fields map[string]string `json:"fields"`
}

func (r *ExtractedRow) UnmarshalJSON(b []byte) error {
	type plain ExtractedRow
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = ExtractedRow(p)
	return r.check()
}

func (r ExtractedRow) check() error {
	set := 0
	want := false
	if r.Academic != nil {
		set++
		want = want || r.Kind == RowAcademic
	}
	if r.Psychological != nil {
		set++
		want = want || r.Kind == RowPsychological
	}
	if r.Physical != nil {
		set++
		want = want || r.Kind == RowPhysical
	}
	if r.Unknown != nil {
		set++
		want = want || r.Kind == RowUnknown
	}
	if set != 1 || !want {
		return fmt.Errorf("extracted row %d: kind %q does not match payload", r.Index, r.Kind)
	}
	return nil
}

func NewAcademicRow(idx int, row AcademicRow) ExtractedRow {
	return ExtractedRow{Kind: RowAcademic, Index: idx, Status: RowStatusExtracted, Academic: &row}
}

func NewPsychologicalRow(idx int, row PsychologicalRow) ExtractedRow {
	return ExtractedRow{Kind: RowPsychological, Index: idx, Status: RowStatusExtracted, Psychological: &row}
}

func NewPhysicalRow(idx int, row PhysicalRow) ExtractedRow {
	return ExtractedRow{Kind: RowPhysical, Index: idx, Status: RowStatusExtracted, Physical: &row}
}

func NewUnknownRow(idx int, fields map[string]string) ExtractedRow {
	return ExtractedRow{Kind: RowUnknown, Index: idx, Status: RowStatusSkipped, Unknown: &UnknownRow{Fields: fields}}
}
