package scorers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
)

func fp(v float64) *float64 { return &v }

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func academic(subject string, pct, total float64, at *time.Time) *types.AcademicObservation {
	return &types.AcademicObservation{
		Subject:        subject,
		AssessmentType: "exam",
		TotalMarks:     total,
		MarksObtained:  pct * total / 100,
		Percentage:     pct,
		AssessmentDate: at,
	}
}

func TestScoreAcademicSingleObservation(t *testing.T) {
	res := ScoreAcademic([]*types.AcademicObservation{academic("mathematics", 80, 100, nil)})
	require.NotNil(t, res.Score)
	assert.InDelta(t, 80.0, *res.Score, 1e-9)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, map[string]int{"A": 1}, res.GradeDistribution)
	assert.InDelta(t, 100.0, res.Consistency, 1e-9)
	assert.Zero(t, res.ImprovementRate)
}

func TestScoreAcademicWeightsByTotalMarks(t *testing.T) {
	res := ScoreAcademic([]*types.AcademicObservation{
		academic("mathematics", 90, 200, day(2024, 9, 1)),
		academic("science", 60, 100, day(2024, 10, 1)),
		academic("english", 30, 0, day(2024, 11, 1)),
	})
	// (90*200 + 60*100 + 30*100) / 400
	require.NotNil(t, res.Score)
	assert.InDelta(t, 67.5, *res.Score, 1e-9)
	assert.Equal(t, []string{"mathematics"}, res.Strengths)
	assert.Equal(t, []string{"english"}, res.Weaknesses)
	assert.Len(t, res.Subjects, 3)
	assert.Equal(t, "english", res.Subjects[0].Subject)
}

func TestScoreAcademicDecliningSubjectIsWeakness(t *testing.T) {
	res := ScoreAcademic([]*types.AcademicObservation{
		academic("History", 85, 100, day(2024, 9, 1)),
		academic("history", 75, 100, day(2024, 10, 1)),
		academic("history", 65, 100, day(2024, 11, 1)),
	})
	require.Len(t, res.Subjects, 1)
	assert.InDelta(t, -10.0, res.Subjects[0].Slope, 1e-9)
	assert.Equal(t, []string{"history"}, res.Weaknesses)
	assert.Less(t, res.ImprovementRate, 0.0)
	assert.Equal(t, "history", res.Latest.Subject)
}

func TestScoreAcademicEmpty(t *testing.T) {
	res := ScoreAcademic(nil)
	assert.Nil(t, res.Score)
	assert.Empty(t, res.Subjects)
	assert.False(t, res.Composite.Present())
}

func TestScorePsychologicalDASS(t *testing.T) {
	o := &types.PsychologicalObservation{DASSDepression: fp(8), DASSAnxiety: fp(6), DASSStress: fp(12)}
	res := ScorePsychological(o)
	require.NotNil(t, res.Score)
	assert.InDelta(t, 100.0, *res.Score, 1e-9)
	assert.False(t, res.SDQ.Present())

	o.DASSDepression = fp(22)
	res = ScorePsychological(o)
	assert.InDelta(t, 80.0, *res.Score, 1e-9)
	assert.Equal(t, "severe", res.Severity["depression"])

	res.Apply(o)
	require.NotNil(t, o.DASSScore)
	assert.InDelta(t, 80.0, *o.DASSScore, 1e-9)
	assert.Nil(t, o.SDQScore)
	assert.Equal(t, res.Score, o.CompositeScore)
}

func TestScorePsychologicalAbsent(t *testing.T) {
	assert.Nil(t, ScorePsychological(nil).Score)
	assert.Nil(t, ScorePsychological(&types.PsychologicalObservation{}).Score)
}

func TestScorePhysicalDerivesBMI(t *testing.T) {
	o := &types.PhysicalObservation{HeightCM: fp(160), WeightKG: fp(54), MeasurementDate: time.Now().UTC()}
	res := ScorePhysical(o, nil)
	require.NotNil(t, res.BMI)
	assert.InDelta(t, 21.09, *res.BMI, 0.01)
	require.NotNil(t, res.Score)
	assert.InDelta(t, 100.0, *res.Score, 1e-9)
	assert.Nil(t, o.BMI)

	o.WeightKG = fp(120)
	res = ScorePhysical(o, nil)
	assert.InDelta(t, 46.88, *res.BMI, 0.01)
	assert.InDelta(t, 10.0, *res.BMIScore, 1e-9)
}

func TestScorePhysicalUsesProfileAge(t *testing.T) {
	dob := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	profile := &types.StudentProfile{DateOfBirth: &dob}
	o := &types.PhysicalObservation{SleepHours: fp(10), MeasurementDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	res := ScorePhysical(o, profile)
	require.NotNil(t, res.Age)
	assert.Equal(t, 14, *res.Age)
	assert.InDelta(t, 100.0, res.Sleep.Score, 1e-9)

	res = ScorePhysical(o, nil)
	assert.InDelta(t, 100.0, res.Sleep.Score, 1e-9)
}

func TestRefreshWritesCompositesOnLatest(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	obs := observations.NewRepository(db, log)
	s := NewScorer(log, obs, students.NewStudentProfileRepo(db, log))

	studentID := uuid.New()
	_, err := obs.PsychologicalRepo().Create(dbc, []*types.PsychologicalObservation{
		{StudentID: studentID, AcademicYear: "2024-25", AssessmentDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), DASSStress: fp(40)},
		{StudentID: studentID, AcademicYear: "2024-25", AssessmentDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), DASSStress: fp(10)},
	})
	require.NoError(t, err)
	_, err = obs.PhysicalRepo().Create(dbc, []*types.PhysicalObservation{
		{StudentID: studentID, AcademicYear: "2024-25", Cardio: fp(70), Strength: fp(90)},
	})
	require.NoError(t, err)

	require.NoError(t, s.Refresh(dbc, studentID, types.DomainPsychological, "2024-25"))
	require.NoError(t, s.Refresh(dbc, studentID, types.DomainPhysical, "2024-25"))
	require.NoError(t, s.Refresh(dbc, studentID, types.DomainAcademic, "2024-25"))

	latest, err := obs.LatestPsychological(dbc, studentID, "2024-25")
	require.NoError(t, err)
	require.NotNil(t, latest.CompositeScore)
	assert.InDelta(t, 100.0, *latest.CompositeScore, 1e-9)

	phys, err := obs.LatestPhysical(dbc, studentID, "2024-25")
	require.NoError(t, err)
	require.NotNil(t, phys.CompositeScore)
	assert.InDelta(t, 80.0, *phys.CompositeScore, 1e-9)

	all, err := s.All(dbc, studentID, "2024-25")
	require.NoError(t, err)
	d := all.Domains()
	assert.Nil(t, d.Academic)
	assert.InDelta(t, 100.0, *d.Psychological, 1e-9)
	assert.InDelta(t, 80.0, *d.Physical, 1e-9)
}
