package mapping

import (
	"math"
	"strconv"
	"strings"
	"time"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/domain/observations"
)

// derivedFrom lists derived fields and the inputs they depend on. When an
// edit touches an input, the stale derived value is dropped so it is
// recomputed.
var derivedFrom = map[types.Domain]map[string][]string{
	types.DomainAcademic: {
		FieldPercentage:  {FieldMarksObtained, FieldTotalMarks},
		FieldLetterGrade: {FieldMarksObtained, FieldTotalMarks, FieldPercentage},
	},
	types.DomainPhysical: {
		FieldBMI: {FieldHeightCM, FieldWeightKG},
	},
}

// Merge overlays changes on the current raw fields of an observation. An
// empty change value clears the field.
func Merge(d types.Domain, current, changes map[string]string) map[string]string {
	out := make(map[string]string, len(current)+len(changes))
	for k, v := range current {
		out[k] = v
	}
	for derived, inputs := range derivedFrom[d] {
		if _, explicit := changes[derived]; explicit {
			continue
		}
		for _, in := range inputs {
			if _, ok := changes[in]; ok {
				delete(out, derived)
				break
			}
		}
	}
	for k, v := range changes {
		if strings.TrimSpace(v) == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Changed returns the fields whose raw value differs between before and after.
func Changed(before, after map[string]string) []string {
	var out []string
	for k, v := range after {
		if before[k] != v {
			out = append(out, k)
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

func numStr(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }

func putNum(m map[string]string, k string, p *float64) {
	if p != nil {
		m[k] = numStr(*p)
	}
}

func putInt(m map[string]string, k string, p *int) {
	if p != nil {
		m[k] = strconv.Itoa(*p)
	}
}

func putText(m map[string]string, k, v string) {
	if strings.TrimSpace(v) != "" {
		m[k] = v
	}
}

func putDate(m map[string]string, k string, t *time.Time) {
	if t != nil && !t.IsZero() {
		m[k] = t.UTC().Format("2006-01-02")
	}
}

func RawAcademic(o *types.AcademicObservation) map[string]string {
	m := map[string]string{}
	putText(m, FieldSubject, o.Subject)
	putText(m, FieldAssessmentType, o.AssessmentType)
	putText(m, FieldClassGrade, o.ClassGrade)
	m[FieldMarksObtained] = numStr(o.MarksObtained)
	m[FieldTotalMarks] = numStr(o.TotalMarks)
	m[FieldPercentage] = numStr(o.Percentage)
	putText(m, FieldLetterGrade, o.LetterGrade)
	putInt(m, FieldClassRank, o.ClassRank)
	putNum(m, FieldAttendancePercent, o.AttendancePercent)
	putNum(m, FieldHomeworkPercent, o.HomeworkPercent)
	putNum(m, FieldParticipationPercent, o.ParticipationPercent)
	putText(m, FieldTeacherComments, o.TeacherComments)
	putDate(m, FieldAssessmentDate, o.AssessmentDate)
	return m
}

func RawPsychological(o *types.PsychologicalObservation) map[string]string {
	m := map[string]string{}
	putText(m, FieldCategory, o.Category)
	putText(m, FieldInstrumentName, o.InstrumentName)
	putDate(m, FieldAssessmentDate, &o.AssessmentDate)
	putNum(m, FieldSDQEmotional, o.SDQEmotional)
	putNum(m, FieldSDQConduct, o.SDQConduct)
	putNum(m, FieldSDQHyperactivity, o.SDQHyperactivity)
	putNum(m, FieldSDQPeer, o.SDQPeer)
	putNum(m, FieldSDQProsocial, o.SDQProsocial)
	putNum(m, FieldDASSDepression, o.DASSDepression)
	putNum(m, FieldDASSAnxiety, o.DASSAnxiety)
	putNum(m, FieldDASSStress, o.DASSStress)
	putNum(m, FieldPERMAPositiveEmotion, o.PERMAPositiveEmotion)
	putNum(m, FieldPERMAEngagement, o.PERMAEngagement)
	putNum(m, FieldPERMARelationships, o.PERMARelationships)
	putNum(m, FieldPERMAMeaning, o.PERMAMeaning)
	putNum(m, FieldPERMAAccomplishment, o.PERMAAccomplishment)
	putText(m, FieldMoodNotes, o.MoodNotes)
	return m
}

func RawPhysical(o *types.PhysicalObservation) map[string]string {
	m := map[string]string{}
	putDate(m, FieldMeasurementDate, &o.MeasurementDate)
	putNum(m, FieldHeightCM, o.HeightCM)
	putNum(m, FieldWeightKG, o.WeightKG)
	putNum(m, FieldBMI, o.BMI)
	putNum(m, FieldBMIPercentile, o.BMIPercentile)
	putNum(m, FieldCardio, o.Cardio)
	putNum(m, FieldStrength, o.Strength)
	putNum(m, FieldFlexibility, o.Flexibility)
	putNum(m, FieldEndurance, o.Endurance)
	putInt(m, FieldPushUps, o.PushUps)
	putInt(m, FieldSitUps, o.SitUps)
	putNum(m, FieldRunTimeSeconds, o.RunTimeSeconds)
	putInt(m, FieldRestingHeartRate, o.RestingHeartRate)
	putInt(m, FieldSystolicBP, o.SystolicBP)
	putInt(m, FieldDiastolicBP, o.DiastolicBP)
	putNum(m, FieldDailyActivityHours, o.DailyActivityHours)
	putNum(m, FieldSleepHours, o.SleepHours)
	putNum(m, FieldSleepQuality, o.SleepQuality)
	putNum(m, FieldScreenTimeHours, o.ScreenTimeHours)
	putNum(m, FieldNutritionScore, o.NutritionScore)
	return m
}

func (v Values) intp(name string) *int {
	x, ok := v.Numbers[name]
	if !ok {
		return nil
	}
	n := int(math.Round(x))
	return &n
}

func (v Values) date(name string) *time.Time {
	t, ok := ParseDate(v.Text[name])
	if !ok {
		return nil
	}
	return &t
}

// FillAcademic writes validated values onto o, replacing every mapped field.
// The letter grade is derived when absent.
func FillAcademic(o *types.AcademicObservation, v Values) {
	o.Subject = strings.ToLower(strings.TrimSpace(v.Text[FieldSubject]))
	o.AssessmentType = strings.ToLower(strings.TrimSpace(v.Text[FieldAssessmentType]))
	if o.AssessmentType == "" {
		o.AssessmentType = observations.AssessmentExam
	}
	o.ClassGrade = v.Text[FieldClassGrade]
	o.MarksObtained = v.Numbers[FieldMarksObtained]
	o.TotalMarks = v.Numbers[FieldTotalMarks]
	o.Percentage = v.Numbers[FieldPercentage]
	o.LetterGrade = strings.ToUpper(strings.TrimSpace(v.Text[FieldLetterGrade]))
	if o.LetterGrade == "" {
		o.LetterGrade = observations.LetterGradeFor(o.Percentage)
	}
	o.ClassRank = v.intp(FieldClassRank)
	o.AttendancePercent = v.num(FieldAttendancePercent)
	o.HomeworkPercent = v.num(FieldHomeworkPercent)
	o.ParticipationPercent = v.num(FieldParticipationPercent)
	o.TeacherComments = v.Text[FieldTeacherComments]
	o.AssessmentDate = v.date(FieldAssessmentDate)
}

func FillPsychological(o *types.PsychologicalObservation, v Values) {
	o.Category = strings.ToLower(strings.TrimSpace(v.Text[FieldCategory]))
	if o.Category == "" {
		o.Category = inferCategory(v)
	}
	o.InstrumentName = v.Text[FieldInstrumentName]
	if t := v.date(FieldAssessmentDate); t != nil {
		o.AssessmentDate = *t
	}
	o.SDQEmotional = v.num(FieldSDQEmotional)
	o.SDQConduct = v.num(FieldSDQConduct)
	o.SDQHyperactivity = v.num(FieldSDQHyperactivity)
	o.SDQPeer = v.num(FieldSDQPeer)
	o.SDQProsocial = v.num(FieldSDQProsocial)
	o.DASSDepression = v.num(FieldDASSDepression)
	o.DASSAnxiety = v.num(FieldDASSAnxiety)
	o.DASSStress = v.num(FieldDASSStress)
	o.PERMAPositiveEmotion = v.num(FieldPERMAPositiveEmotion)
	o.PERMAEngagement = v.num(FieldPERMAEngagement)
	o.PERMARelationships = v.num(FieldPERMARelationships)
	o.PERMAMeaning = v.num(FieldPERMAMeaning)
	o.PERMAAccomplishment = v.num(FieldPERMAAccomplishment)
	o.MoodNotes = v.Text[FieldMoodNotes]
}

// inferCategory names the instrument family that dominates the values.
func inferCategory(v Values) string {
	count := func(prefix string) int {
		n := 0
		for k := range v.Numbers {
			if strings.HasPrefix(k, prefix) {
				n++
			}
		}
		return n
	}
	sdq, dass, perma := count("sdq_"), count("dass_"), count("perma_")
	switch {
	case dass > 0 && dass >= sdq && dass >= perma:
		return observations.CategoryDASS
	case sdq > 0 && sdq >= perma:
		return observations.CategorySDQ
	case perma > 0:
		return observations.CategoryPERMA
	}
	return observations.CategoryGeneral
}

func FillPhysical(o *types.PhysicalObservation, v Values) {
	if t := v.date(FieldMeasurementDate); t != nil {
		o.MeasurementDate = *t
	}
	o.HeightCM = v.num(FieldHeightCM)
	o.WeightKG = v.num(FieldWeightKG)
	o.BMI = v.num(FieldBMI)
	o.BMIPercentile = v.num(FieldBMIPercentile)
	o.Cardio = v.num(FieldCardio)
	o.Strength = v.num(FieldStrength)
	o.Flexibility = v.num(FieldFlexibility)
	o.Endurance = v.num(FieldEndurance)
	o.PushUps = v.intp(FieldPushUps)
	o.SitUps = v.intp(FieldSitUps)
	o.RunTimeSeconds = v.num(FieldRunTimeSeconds)
	o.RestingHeartRate = v.intp(FieldRestingHeartRate)
	o.SystolicBP = v.intp(FieldSystolicBP)
	o.DiastolicBP = v.intp(FieldDiastolicBP)
	o.DailyActivityHours = v.num(FieldDailyActivityHours)
	o.SleepHours = v.num(FieldSleepHours)
	o.SleepQuality = v.num(FieldSleepQuality)
	o.ScreenTimeHours = v.num(FieldScreenTimeHours)
	o.NutritionScore = v.num(FieldNutritionScore)
}

// ObservedAt returns the date a value set refers to, if it names one.
func ObservedAt(d types.Domain, v Values) *time.Time {
	switch d {
	case types.DomainAcademic, types.DomainPsychological:
		return v.date(FieldAssessmentDate)
	case types.DomainPhysical:
		return v.date(FieldMeasurementDate)
	}
	return nil
}
