// Package mapping turns loosely labelled tabular or free text input into
// canonical per-domain fields: domain detection, column mapping, numeric
// cleaning, OCR patterns and derived values.
package mapping

import (
	types "github.com/yungbote/edusight-backend/internal/domain"
)

type FieldKind int

const (
	Numeric FieldKind = iota
	Text
	Date
)

// Field is a canonical field and the column labels that map onto it.
type Field struct {
	Name    string
	Kind    FieldKind
	Aliases []string
}

// Canonical academic field names.
const (
	FieldSubject              = "subject"
	FieldAssessmentType       = "assessment_type"
	FieldClassRank            = "class_rank"
	FieldClassGrade           = "class_grade"
	FieldMarksObtained        = "marks_obtained"
	FieldTotalMarks           = "total_marks"
	FieldPercentage           = "percentage"
	FieldLetterGrade          = "letter_grade"
	FieldAttendancePercent    = "attendance_percent"
	FieldHomeworkPercent      = "homework_percent"
	FieldParticipationPercent = "participation_percent"
	FieldTeacherComments      = "teacher_comments"
	FieldAssessmentDate       = "assessment_date"
)

// Canonical psychological field names.
const (
	FieldCategory             = "category"
	FieldInstrumentName       = "instrument_name"
	FieldSDQEmotional         = "sdq_emotional"
	FieldSDQConduct           = "sdq_conduct"
	FieldSDQHyperactivity     = "sdq_hyperactivity"
	FieldSDQPeer              = "sdq_peer"
	FieldSDQProsocial         = "sdq_prosocial"
	FieldDASSDepression       = "dass_depression"
	FieldDASSAnxiety          = "dass_anxiety"
	FieldDASSStress           = "dass_stress"
	FieldPERMAPositiveEmotion = "perma_positive_emotion"
	FieldPERMAEngagement      = "perma_engagement"
	FieldPERMARelationships   = "perma_relationships"
	FieldPERMAMeaning         = "perma_meaning"
	FieldPERMAAccomplishment  = "perma_accomplishment"
	FieldMoodNotes            = "mood_notes"
)

// Canonical physical field names.
const (
	FieldMeasurementDate    = "measurement_date"
	FieldHeightCM           = "height_cm"
	FieldWeightKG           = "weight_kg"
	FieldBMIPercentile      = "bmi_percentile"
	FieldBMI                = "bmi"
	FieldCardio             = "cardio"
	FieldStrength           = "strength"
	FieldFlexibility        = "flexibility"
	FieldEndurance          = "endurance"
	FieldPushUps            = "push_ups"
	FieldSitUps             = "sit_ups"
	FieldRunTimeSeconds     = "run_time_seconds"
	FieldRestingHeartRate   = "resting_heart_rate"
	FieldSystolicBP         = "systolic_bp"
	FieldDiastolicBP        = "diastolic_bp"
	FieldDailyActivityHours = "daily_activity_hours"
	FieldSleepQuality       = "sleep_quality"
	FieldSleepHours         = "sleep_hours"
	FieldScreenTimeHours    = "screen_time_hours"
	FieldNutritionScore     = "nutrition_score"
)

// Order matters: a more specific field precedes one whose alias is a
// substring of it (class_rank before class_grade, bmi_percentile before bmi).
var academicFields = []Field{
	{FieldSubject, Text, []string{"subject", "course", "paper"}},
	{FieldAssessmentType, Text, []string{"assessment_type", "exam_type", "test_type", "assessment"}},
	{FieldClassRank, Numeric, []string{"class_rank", "rank", "position"}},
	{FieldClassGrade, Text, []string{"class_grade", "grade_level", "class", "standard"}},
	{FieldMarksObtained, Numeric, []string{"marks_obtained", "marks", "obtained", "score", "points"}},
	{FieldTotalMarks, Numeric, []string{"total_marks", "max_marks", "maximum_marks", "out_of", "total"}},
	{FieldPercentage, Numeric, []string{"percentage", "percent", "pct"}},
	{FieldLetterGrade, Text, []string{"letter_grade", "grade"}},
	{FieldAttendancePercent, Numeric, []string{"attendance_percent", "attendance"}},
	{FieldHomeworkPercent, Numeric, []string{"homework_percent", "homework"}},
	{FieldParticipationPercent, Numeric, []string{"participation_percent", "participation"}},
	{FieldTeacherComments, Text, []string{"teacher_comments", "comments", "remarks", "feedback"}},
	{FieldAssessmentDate, Date, []string{"assessment_date", "exam_date", "date"}},
}

var psychologicalFields = []Field{
	{FieldCategory, Text, []string{"category"}},
	{FieldInstrumentName, Text, []string{"instrument_name", "instrument", "questionnaire"}},
	{FieldAssessmentDate, Date, []string{"assessment_date", "date"}},
	{FieldSDQEmotional, Numeric, []string{"sdq_emotional", "emotional_symptoms", "emotional"}},
	{FieldSDQConduct, Numeric, []string{"sdq_conduct", "conduct_problems", "conduct"}},
	{FieldSDQHyperactivity, Numeric, []string{"sdq_hyperactivity", "hyperactivity", "hyper"}},
	{FieldSDQPeer, Numeric, []string{"sdq_peer", "peer_problems", "peer"}},
	{FieldSDQProsocial, Numeric, []string{"sdq_prosocial", "prosocial"}},
	{FieldDASSDepression, Numeric, []string{"dass_depression", "depression"}},
	{FieldDASSAnxiety, Numeric, []string{"dass_anxiety", "anxiety"}},
	{FieldDASSStress, Numeric, []string{"dass_stress", "stress"}},
	{FieldPERMAPositiveEmotion, Numeric, []string{"perma_positive_emotion", "positive_emotion", "positive"}},
	{FieldPERMAEngagement, Numeric, []string{"perma_engagement", "engagement"}},
	{FieldPERMARelationships, Numeric, []string{"perma_relationships", "relationships"}},
	{FieldPERMAMeaning, Numeric, []string{"perma_meaning", "meaning"}},
	{FieldPERMAAccomplishment, Numeric, []string{"perma_accomplishment", "accomplishment", "achievement"}},
	{FieldMoodNotes, Text, []string{"mood_notes", "mood", "notes"}},
}

var physicalFields = []Field{
	{FieldMeasurementDate, Date, []string{"measurement_date", "date"}},
	{FieldHeightCM, Numeric, []string{"height_cm", "height"}},
	{FieldWeightKG, Numeric, []string{"weight_kg", "weight"}},
	{FieldBMIPercentile, Numeric, []string{"bmi_percentile", "percentile"}},
	{FieldBMI, Numeric, []string{"bmi", "body_mass_index"}},
	{FieldCardio, Numeric, []string{"cardio", "cardiovascular", "aerobic"}},
	{FieldStrength, Numeric, []string{"strength"}},
	{FieldFlexibility, Numeric, []string{"flexibility"}},
	{FieldEndurance, Numeric, []string{"endurance", "stamina"}},
	{FieldPushUps, Numeric, []string{"push_ups", "pushups", "push"}},
	{FieldSitUps, Numeric, []string{"sit_ups", "situps", "sit"}},
	{FieldRunTimeSeconds, Numeric, []string{"run_time_seconds", "run_time", "run"}},
	{FieldRestingHeartRate, Numeric, []string{"resting_heart_rate", "heart_rate", "pulse"}},
	{FieldSystolicBP, Numeric, []string{"systolic_bp", "systolic"}},
	{FieldDiastolicBP, Numeric, []string{"diastolic_bp", "diastolic"}},
	{FieldDailyActivityHours, Numeric, []string{"daily_activity_hours", "activity"}},
	{FieldSleepQuality, Numeric, []string{"sleep_quality"}},
	{FieldSleepHours, Numeric, []string{"sleep_hours", "sleep"}},
	{FieldScreenTimeHours, Numeric, []string{"screen_time_hours", "screen"}},
	{FieldNutritionScore, Numeric, []string{"nutrition_score", "nutrition", "diet"}},
}

// Fields returns the canonical field table for d, nil for generic.
func Fields(d types.Domain) []Field {
	switch d {
	case types.DomainAcademic:
		return academicFields
	case types.DomainPsychological:
		return psychologicalFields
	case types.DomainPhysical:
		return physicalFields
	}
	return nil
}

// Lookup finds the canonical field name in d.
func Lookup(d types.Domain, name string) (Field, bool) {
	for _, f := range Fields(d) {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
