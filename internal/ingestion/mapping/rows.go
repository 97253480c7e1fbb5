package mapping

import (
	"strings"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/domain/uploads"
)

// Values holds one candidate observation after cleaning: numeric fields in
// Numbers, text and date fields verbatim in Text.
type Values struct {
	Numbers map[string]float64
	Text    map[string]string
}

func NewValues() Values {
	return Values{Numbers: map[string]float64{}, Text: map[string]string{}}
}

func (v Values) num(name string) *float64 {
	x, ok := v.Numbers[name]
	if !ok {
		return nil
	}
	return &x
}

// Empty reports whether no field carries a value.
func (v Values) Empty() bool { return len(v.Numbers) == 0 && len(v.Text) == 0 }

// BuildRow packs values into the tagged row variant for d. Generic input
// keeps the raw cells.
func BuildRow(d types.Domain, index int, v Values, raw map[string]string) uploads.ExtractedRow {
	switch d {
	case types.DomainAcademic:
		return uploads.NewAcademicRow(index, uploads.AcademicRow{
			Subject:              strings.TrimSpace(v.Text[FieldSubject]),
			AssessmentType:       strings.ToLower(strings.TrimSpace(v.Text[FieldAssessmentType])),
			ClassGrade:           v.Text[FieldClassGrade],
			MarksObtained:        v.num(FieldMarksObtained),
			TotalMarks:           v.num(FieldTotalMarks),
			Percentage:           v.num(FieldPercentage),
			LetterGrade:          strings.ToUpper(strings.TrimSpace(v.Text[FieldLetterGrade])),
			ClassRank:            v.num(FieldClassRank),
			AttendancePercent:    v.num(FieldAttendancePercent),
			HomeworkPercent:      v.num(FieldHomeworkPercent),
			ParticipationPercent: v.num(FieldParticipationPercent),
			TeacherComments:      v.Text[FieldTeacherComments],
			AssessmentDate:       v.Text[FieldAssessmentDate],
		})
	case types.DomainPsychological:
		return uploads.NewPsychologicalRow(index, uploads.PsychologicalRow{
			Category:       strings.ToLower(strings.TrimSpace(v.Text[FieldCategory])),
			InstrumentName: v.Text[FieldInstrumentName],
			AssessmentDate: v.Text[FieldAssessmentDate],
			SDQEmotional:   v.num(FieldSDQEmotional),
			SDQConduct:     v.num(FieldSDQConduct),
			SDQHyper:       v.num(FieldSDQHyperactivity),
			SDQPeer:        v.num(FieldSDQPeer),
			SDQProsocial:   v.num(FieldSDQProsocial),
			DASSDepression: v.num(FieldDASSDepression),
			DASSAnxiety:    v.num(FieldDASSAnxiety),
			DASSStress:     v.num(FieldDASSStress),
			PERMAPositive:  v.num(FieldPERMAPositiveEmotion),
			PERMAEngage:    v.num(FieldPERMAEngagement),
			PERMARelations: v.num(FieldPERMARelationships),
			PERMAMeaning:   v.num(FieldPERMAMeaning),
			PERMAAchieve:   v.num(FieldPERMAAccomplishment),
			MoodNotes:      v.Text[FieldMoodNotes],
		})
	case types.DomainPhysical:
		return uploads.NewPhysicalRow(index, uploads.PhysicalRow{
			MeasurementDate:    v.Text[FieldMeasurementDate],
			HeightCM:           v.num(FieldHeightCM),
			WeightKG:           v.num(FieldWeightKG),
			BMI:                v.num(FieldBMI),
			BMIPercentile:      v.num(FieldBMIPercentile),
			Cardio:             v.num(FieldCardio),
			Strength:           v.num(FieldStrength),
			Flexibility:        v.num(FieldFlexibility),
			Endurance:          v.num(FieldEndurance),
			PushUps:            v.num(FieldPushUps),
			SitUps:             v.num(FieldSitUps),
			RunTimeSeconds:     v.num(FieldRunTimeSeconds),
			RestingHeartRate:   v.num(FieldRestingHeartRate),
			SystolicBP:         v.num(FieldSystolicBP),
			DiastolicBP:        v.num(FieldDiastolicBP),
			DailyActivityHours: v.num(FieldDailyActivityHours),
			SleepHours:         v.num(FieldSleepHours),
			SleepQuality:       v.num(FieldSleepQuality),
			ScreenTimeHours:    v.num(FieldScreenTimeHours),
			NutritionScore:     v.num(FieldNutritionScore),
		})
	}
	cells := map[string]string{}
	for k, val := range raw {
		cells[k] = val
	}
	return uploads.NewUnknownRow(index, cells)
}
