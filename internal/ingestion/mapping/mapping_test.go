package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/domain/uploads"
)

func TestDetectColumns(t *testing.T) {
	cases := []struct {
		name    string
		columns []string
		want    types.Domain
	}{
		{"academic", []string{"Student", "Subject", "Marks Obtained", "Total Marks", "Exam"}, types.DomainAcademic},
		{"psychological", []string{"Date", "DASS Depression", "Anxiety", "Stress"}, types.DomainPsychological},
		{"physical", []string{"Height (cm)", "Weight (kg)", "Sleep Hours"}, types.DomainPhysical},
		{"generic", []string{"foo", "bar"}, types.DomainGeneric},
		{"case insensitive", []string{"HEIGHT", "BMI"}, types.DomainPhysical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectColumns(tc.columns).Domain)
		})
	}
}

func TestResolveHint(t *testing.T) {
	det := DetectColumns([]string{"Subject", "Marks", "Sleep"})
	assert.Equal(t, types.DomainPhysical, Resolve(det, types.DomainPhysical))
	assert.Equal(t, types.DomainAcademic, Resolve(det, types.DomainPsychological))
	assert.Equal(t, types.DomainPsychological, Resolve(DetectColumns([]string{"x"}), types.DomainPsychological))
	assert.Equal(t, types.DomainAcademic, Resolve(det, ""))
}

func TestMapColumns(t *testing.T) {
	cols := []string{"Subject", "Total Marks", "Marks", "Grade", "Class Rank", "Attendance %", "Student ID"}
	m := MapColumns(types.DomainAcademic, cols)
	assert.Equal(t, 0, m.Fields[FieldSubject])
	assert.Equal(t, 1, m.Fields[FieldTotalMarks])
	assert.Equal(t, 2, m.Fields[FieldMarksObtained])
	assert.Equal(t, 3, m.Fields[FieldLetterGrade])
	assert.Equal(t, 4, m.Fields[FieldClassRank])
	assert.Equal(t, 5, m.Fields[FieldAttendancePercent])
	assert.Equal(t, []string{"Student ID"}, m.Unmapped)
	_, ok := m.Fields[FieldPercentage]
	assert.False(t, ok)

	rec := m.Record([]string{"Maths", "100", "85", "", "3", "92%"})
	assert.Equal(t, map[string]string{
		FieldSubject:           "Maths",
		FieldTotalMarks:        "100",
		FieldMarksObtained:     "85",
		FieldClassRank:         "3",
		FieldAttendancePercent: "92%",
	}, rec)
}

func TestMapColumnsPrefersSpecificPhysicalFields(t *testing.T) {
	m := MapColumns(types.DomainPhysical, []string{"BMI Percentile", "BMI", "Sleep Quality", "Sleep"})
	assert.Equal(t, 0, m.Fields[FieldBMIPercentile])
	assert.Equal(t, 1, m.Fields[FieldBMI])
	assert.Equal(t, 2, m.Fields[FieldSleepQuality])
	assert.Equal(t, 3, m.Fields[FieldSleepHours])
}

func TestCleanNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"85", 85, true},
		{" 92.5% ", 92.5, true},
		{"1,234", 1234, true},
		{"-3", -3, true},
		{"160 cm", 160, true},
		{"abc", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, ok := CleanNumber(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, tc.in)
	}
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2024-09-15")
	require.True(t, ok)
	assert.Equal(t, 15, d.Day())

	d, ok = ParseDate("15/09/2024")
	require.True(t, ok)
	assert.Equal(t, 9, int(d.Month()))

	_, ok = ParseDate("soon")
	assert.False(t, ok)
}

func TestDerive(t *testing.T) {
	v := map[string]float64{FieldMarksObtained: 80}
	set := Derive(types.DomainAcademic, v)
	assert.ElementsMatch(t, []string{FieldTotalMarks, FieldPercentage}, set)
	assert.InDelta(t, 80.0, v[FieldPercentage], 1e-9)

	v = map[string]float64{FieldPercentage: 45, FieldTotalMarks: 50}
	Derive(types.DomainAcademic, v)
	assert.InDelta(t, 22.5, v[FieldMarksObtained], 1e-9)

	v = map[string]float64{FieldHeightCM: 160, FieldWeightKG: 54}
	assert.Equal(t, []string{FieldBMI}, Derive(types.DomainPhysical, v))
	assert.InDelta(t, 21.09, v[FieldBMI], 1e-9)

	v = map[string]float64{FieldHeightCM: 160, FieldWeightKG: 54, FieldBMI: 30}
	assert.Empty(t, Derive(types.DomainPhysical, v))
	assert.InDelta(t, 30.0, v[FieldBMI], 1e-9)
}

func TestMatchTextPhysical(t *testing.T) {
	text := "Health check\nHeight: 160 cm\nWeight: 54 kg\nSleep: 9 hours\nBlood pressure 110/70\nResting heart rate 72"
	m := MatchText(types.DomainPhysical, text)
	require.Len(t, m.Records, 1)
	rec := m.Records[0]
	assert.Equal(t, "160", rec[FieldHeightCM])
	assert.Equal(t, "54", rec[FieldWeightKG])
	assert.Equal(t, "9", rec[FieldSleepHours])
	assert.Equal(t, "110", rec[FieldSystolicBP])
	assert.Equal(t, "70", rec[FieldDiastolicBP])
	assert.Equal(t, "72", rec[FieldRestingHeartRate])
	assert.Equal(t, 5, m.Hits)
}

func TestMatchTextAcademic(t *testing.T) {
	text := "REPORT CARD\nMathematics: 85/100\nScience 72 out of 100\nEnglish - 64%\nTotal 221/300\nAttendance: 93%"
	m := MatchText(types.DomainAcademic, text)
	require.Len(t, m.Records, 3)
	assert.Equal(t, "Mathematics", m.Records[0][FieldSubject])
	assert.Equal(t, "85", m.Records[0][FieldMarksObtained])
	assert.Equal(t, "100", m.Records[0][FieldTotalMarks])
	assert.Equal(t, "93", m.Records[0][FieldAttendancePercent])
	assert.Equal(t, "Science", m.Records[1][FieldSubject])
	assert.Equal(t, "English", m.Records[2][FieldSubject])
	assert.Equal(t, "64", m.Records[2][FieldPercentage])
	assert.Equal(t, 4, m.Hits)
}

func TestBuildRowKinds(t *testing.T) {
	v := NewValues()
	v.Numbers[FieldHeightCM] = 160
	row := BuildRow(types.DomainPhysical, 2, v, nil)
	assert.Equal(t, uploads.RowPhysical, row.Kind)
	require.NotNil(t, row.Physical)
	assert.InDelta(t, 160.0, *row.Physical.HeightCM, 1e-9)
	assert.Nil(t, row.Physical.WeightKG)

	row = BuildRow(types.DomainGeneric, 3, NewValues(), map[string]string{"a": "1"})
	assert.Equal(t, uploads.RowUnknown, row.Kind)
	assert.Equal(t, "1", row.Unknown.Fields["a"])
}
