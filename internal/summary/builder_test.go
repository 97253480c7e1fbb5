package summary

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	"github.com/yungbote/edusight-backend/internal/data/repos/summaries"
	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/scorers"
)

type fixture struct {
	obs     observations.Repository
	repo    summaries.YearSummaryRepo
	builder *builder
	dbc     dbctx.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	obs := observations.NewRepository(db, log)
	repo := summaries.NewYearSummaryRepo(db, log)
	sc := scorers.NewScorer(log, obs, students.NewStudentProfileRepo(db, log))
	b := NewBuilder(log, obs, sc, repo, epr.Default()).(*builder)
	return &fixture{obs: obs, repo: repo, builder: b, dbc: dbctx.Context{Ctx: context.Background()}}
}

func TestRebuildSingleAcademicObservation(t *testing.T) {
	f := newFixture(t)
	studentID := uuid.New()
	_, err := f.obs.AcademicRepo().Create(f.dbc, []*types.AcademicObservation{{
		StudentID: studentID, AcademicYear: "2024-25", Subject: "mathematics", AssessmentType: "exam",
		MarksObtained: 80, TotalMarks: 100, Percentage: 80,
	}})
	require.NoError(t, err)

	res, err := f.builder.Rebuild(f.dbc, studentID, "2024-25")
	require.NoError(t, err)
	require.NotNil(t, res)

	got, err := f.repo.Get(f.dbc, studentID, "2024-25")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.AcademicCount)
	assert.Zero(t, got.PsychologicalCount)
	require.NotNil(t, got.OverallAcademicAverage)
	assert.InDelta(t, 80.0, *got.OverallAcademicAverage, 1e-9)
	require.NotNil(t, got.AnnualEPRScore)
	assert.InDelta(t, 80.0, *got.AnnualEPRScore, 1e-9)
	assert.Equal(t, string(epr.BandHealthyProgress), got.EPRPerformanceBand)
	assert.Nil(t, got.EmotionalWellbeingScore)
	assert.Nil(t, got.FitnessLevel)
}

func stable(t *testing.T, s *types.YearSummary) string {
	t.Helper()
	cp := *s
	cp.LastUpdated = time.Time{}
	b, err := json.Marshal(cp)
	require.NoError(t, err)
	return string(b)
}

func TestRebuildIsIdempotent(t *testing.T) {
	f := newFixture(t)
	studentID := uuid.New()
	d1 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	stress := 30.0
	_, err := f.obs.AcademicRepo().Create(f.dbc, []*types.AcademicObservation{
		{StudentID: studentID, AcademicYear: "2024-25", Subject: "mathematics", AssessmentType: "exam", MarksObtained: 92, TotalMarks: 100, Percentage: 92, AssessmentDate: &d1},
		{StudentID: studentID, AcademicYear: "2024-25", Subject: "science", AssessmentType: "exam", MarksObtained: 45, TotalMarks: 100, Percentage: 45, AssessmentDate: &d2},
	})
	require.NoError(t, err)
	_, err = f.obs.PsychologicalRepo().Create(f.dbc, []*types.PsychologicalObservation{
		{StudentID: studentID, AcademicYear: "2024-25", DASSStress: &stress},
	})
	require.NoError(t, err)

	calls := 0
	f.builder.now = func() time.Time {
		calls++
		return time.Date(2025, 1, calls, 0, 0, 0, 0, time.UTC)
	}

	_, err = f.builder.Rebuild(f.dbc, studentID, "2024-25")
	require.NoError(t, err)
	first, err := f.repo.Get(f.dbc, studentID, "2024-25")
	require.NoError(t, err)

	_, err = f.builder.Rebuild(f.dbc, studentID, "2024-25")
	require.NoError(t, err)
	second, err := f.repo.Get(f.dbc, studentID, "2024-25")
	require.NoError(t, err)

	assert.Equal(t, stable(t, first), stable(t, second))
	assert.True(t, second.LastUpdated.After(first.LastUpdated))

	all, err := f.repo.ListByStudent(f.dbc, studentID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, []string(second.AreasOfConcern), "Below expectations in science")
	assert.Contains(t, []string(second.AreasOfConcern), "DASS-21 stress in the severe range")
}

func TestRebuildRemovesEmptyYear(t *testing.T) {
	f := newFixture(t)
	studentID := uuid.New()
	rows, err := f.obs.PhysicalRepo().Create(f.dbc, []*types.PhysicalObservation{
		{StudentID: studentID, AcademicYear: "2023-24"},
	})
	require.NoError(t, err)
	_, err = f.builder.Rebuild(f.dbc, studentID, "2023-24")
	require.NoError(t, err)

	require.NoError(t, f.obs.PhysicalRepo().Delete(f.dbc, studentID, rows[0].ID))
	res, err := f.builder.Rebuild(f.dbc, studentID, "2023-24")
	require.NoError(t, err)
	assert.Nil(t, res)

	got, err := f.repo.Get(f.dbc, studentID, "2023-24")
	require.NoError(t, err)
	assert.Nil(t, got)
}
