package analytics

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
	domainobs "github.com/yungbote/edusight-backend/internal/domain/observations"
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/platform/cache"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/pointers"
	"github.com/yungbote/edusight-backend/internal/scorers"
)

type fixture struct {
	svc      *service
	obs      observations.Repository
	profiles students.StudentProfileRepo
	cache    *cache.Memory
	dbc      dbctx.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	f := &fixture{
		obs:      observations.NewRepository(db, log),
		profiles: students.NewStudentProfileRepo(db, log),
		cache:    cache.NewMemory(),
		dbc:      dbctx.Context{Ctx: context.Background()},
	}
	svc, err := NewService(log, Config{}, f.obs, f.profiles, scorers.NewScorer(log, f.obs, f.profiles), epr.Default(), Tables{}, f.cache)
	require.NoError(t, err)
	f.svc = svc.(*service)
	f.svc.clock = func() time.Time { return month(2025, 3, 1) }
	return f
}

func (f *fixture) academic(t *testing.T, sid uuid.UUID, subject string, pct float64, at time.Time) {
	t.Helper()
	_, err := f.obs.AcademicRepo().Create(f.dbc, []*types.AcademicObservation{{
		StudentID:      sid,
		AcademicYear:   domainobs.AcademicYearFor(at, time.April),
		Subject:        subject,
		AssessmentType: "exam-" + at.Format("2006-01"),
		MarksObtained:  pct,
		TotalMarks:     100,
		Percentage:     pct,
		AssessmentDate: &at,
	}})
	require.NoError(t, err)
}

func (f *fixture) psychological(t *testing.T, sid uuid.UUID, at time.Time) {
	t.Helper()
	_, err := f.obs.PsychologicalRepo().Create(f.dbc, []*types.PsychologicalObservation{{
		StudentID:      sid,
		AssessmentDate: at,
		AcademicYear:   domainobs.AcademicYearFor(at, time.April),
		Category:       domainobs.CategoryDASS,
		DASSDepression: pointers.Float64(4),
		DASSAnxiety:    pointers.Float64(3),
		DASSStress:     pointers.Float64(8),
	}})
	require.NoError(t, err)
}

func (f *fixture) physical(t *testing.T, sid uuid.UUID, at time.Time, height, weight float64) {
	t.Helper()
	_, err := f.obs.PhysicalRepo().Create(f.dbc, []*types.PhysicalObservation{{
		StudentID:       sid,
		MeasurementDate: at,
		AcademicYear:    domainobs.AcademicYearFor(at, time.April),
		HeightCM:        pointers.Float64(height),
		WeightKG:        pointers.Float64(weight),
		SleepHours:      pointers.Float64(9),
	}})
	require.NoError(t, err)
}

func TestComprehensiveAnalysisSufficiencyGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := uuid.New()

	f.academic(t, sid, "Mathematics", 70, month(2024, 5, 10))
	f.academic(t, sid, "Science", 75, month(2024, 6, 10))
	f.psychological(t, sid, month(2024, 6, 1))
	f.physical(t, sid, month(2024, 6, 1), 140, 35)
	f.physical(t, sid, month(2024, 9, 1), 142, 36)

	res, err := f.svc.ComprehensiveAnalysis(ctx, sid)
	require.NoError(t, err)
	assert.False(t, res.DataSufficient)
	assert.Equal(t, InsufficientMessage, res.Message)
	require.NotEmpty(t, res.Recommendations)
	assert.Equal(t, "Upload more academic records", res.Recommendations[0])
	assert.Nil(t, res.AcademicAnalysis)

	f.academic(t, sid, "English", 80, month(2024, 7, 10))
	// Mutations drop the student's analytics entries.
	require.NoError(t, cache.InvalidateStudent(ctx, f.cache, sid))

	res, err = f.svc.ComprehensiveAnalysis(ctx, sid)
	require.NoError(t, err)
	assert.True(t, res.DataSufficient)
	assert.Empty(t, res.Recommendations)
	require.NotNil(t, res.AcademicAnalysis)
	require.NotNil(t, res.AcademicAnalysis.Summary.Score)
	assert.InDelta(t, 75.0, *res.AcademicAnalysis.Summary.Score, 1e-9)
	require.NotNil(t, res.PhysicalAnalysis)
	assert.Len(t, res.PhysicalAnalysis.Growth.Heights, 2)
	require.NotNil(t, res.OverallInsights)
	require.NotNil(t, res.OverallInsights.Rating)
}

func TestAnalyticsReadThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := uuid.New()
	f.academic(t, sid, "Mathematics", 70, month(2024, 5, 10))

	first, err := f.svc.ComprehensiveAnalysis(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Counts.Academic)

	// A write that bypasses invalidation stays invisible until the entry goes.
	f.academic(t, sid, "Science", 90, month(2024, 6, 10))
	stale, err := f.svc.ComprehensiveAnalysis(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 1, stale.Counts.Academic)

	require.NoError(t, cache.InvalidateStudent(ctx, f.cache, sid))
	fresh, err := f.svc.ComprehensiveAnalysis(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Counts.Academic)
}

func TestBuildRacingInvalidationIsNotServedLater(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := uuid.New()

	// The write commits and invalidates while the first build is still running.
	got, err := cached(ctx, f.svc, sid, cache.EntryTrends, func(ctx context.Context) (string, error) {
		require.NoError(t, cache.InvalidateStudent(ctx, f.cache, sid))
		return "before-write", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "before-write", got)

	got, err = cached(ctx, f.svc, sid, cache.EntryTrends, func(context.Context) (string, error) {
		return "after-write", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "after-write", got)

	got, err = cached(ctx, f.svc, sid, cache.EntryTrends, func(context.Context) (string, error) {
		return "rebuilt", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "after-write", got, "the post-write result stays cached")
}

func TestPredictAcademicForecast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := uuid.New()
	for i, pct := range []float64{60, 62, 64, 66} {
		f.academic(t, sid, "Mathematics", pct, month(2024, time.Month(5+i), 10))
	}

	p, err := f.svc.Predict(ctx, sid, KindAcademic, "3_months")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Periods)
	assert.Equal(t, []string{"2024-05", "2024-06", "2024-07", "2024-08"}, p.Months)
	require.NotNil(t, p.Forecast)
	assert.InDelta(t, 72.0, p.Forecast.Ensemble, 1e-6)
	assert.Empty(t, p.Warnings)

	_, err = f.svc.Predict(ctx, sid, "horoscope", "1_year")
	assert.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))
	_, err = f.svc.Predict(ctx, sid, KindAcademic, "forever")
	assert.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))
}

func TestPredictFlagsUnreliableForecast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := uuid.New()
	for i, pct := range []float64{20, 95, 15, 90, 10} {
		f.academic(t, sid, "Mathematics", pct, month(2024, time.Month(5+i), 10))
	}
	p, err := f.svc.Predict(ctx, sid, KindAcademic, "6_months")
	require.NoError(t, err)
	require.Len(t, p.Warnings, 1)
	assert.Equal(t, errs.KindForecastUnreliable, p.Warnings[0].Kind)
}

func TestPredictNeedsHistory(t *testing.T) {
	f := newFixture(t)
	sid := uuid.New()
	f.academic(t, sid, "Mathematics", 70, month(2024, 5, 10))

	_, err := f.svc.Predict(context.Background(), sid, KindEPR, "1_year")
	assert.Equal(t, errs.KindInsufficientData, errs.KindOf(err))
	_, err = f.svc.Predict(context.Background(), sid, KindGrowth, "1_year")
	assert.Equal(t, errs.KindInsufficientData, errs.KindOf(err))
}

func TestPredictGrowth(t *testing.T) {
	f := newFixture(t)
	sid := uuid.New()
	f.physical(t, sid, month(2024, 1, 1), 140, 35)
	f.physical(t, sid, month(2025, 1, 1), 146, 38)

	p, err := f.svc.Predict(context.Background(), sid, KindGrowth, "1_year")
	require.NoError(t, err)
	require.NotNil(t, p.Growth)
	require.NotNil(t, p.Growth.Height)
	assert.InDelta(t, 152.0, p.Growth.Height.Projected, 0.2)
	assert.InDelta(t, 41.0, p.Growth.Weight.Projected, 0.2)
	require.NotNil(t, p.Growth.BMI)
}

func TestPredictCareer(t *testing.T) {
	f := newFixture(t)
	sid := uuid.New()
	f.academic(t, sid, "Mathematics", 92, month(2024, 5, 10))
	f.academic(t, sid, "Physics", 88, month(2024, 6, 10))

	p, err := f.svc.Predict(context.Background(), sid, KindCareer, "")
	require.NoError(t, err)
	require.NotNil(t, p.Career)
	assert.Len(t, p.Career.Matches, DefaultCareerMatches)
	assert.NotEmpty(t, p.Career.Aptitude.Skills)
	for i := 1; i < len(p.Career.Matches); i++ {
		assert.GreaterOrEqual(t, p.Career.Matches[i-1].Score, p.Career.Matches[i].Score)
	}
}

func TestBenchmarksUseLatestYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := uuid.New()
	f.academic(t, sid, "Mathematics", 50, month(2023, 6, 10))
	f.academic(t, sid, "Mathematics", 68, month(2024, 6, 10))

	rep, err := f.svc.Benchmarks(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "2024-25", rep.AcademicYear)
	assert.InDelta(t, 68.0, rep.Scores["academic"], 1e-9)
	assert.InDelta(t, 50.0, rep.Percentiles["academic"], 1e-9)
	assert.Contains(t, rep.ComparisonsByBenchmark, "state")
	assert.Equal(t, "at", rep.ComparisonsByBenchmark["national"]["academic"].Position)
	assert.Empty(t, rep.AgeGroup)

	_, err = f.svc.Benchmarks(ctx, uuid.New())
	assert.Equal(t, errs.KindInsufficientData, errs.KindOf(err))
}

func TestTrendsIncludeComposedEPR(t *testing.T) {
	f := newFixture(t)
	sid := uuid.New()
	f.academic(t, sid, "Mathematics", 60, month(2024, 5, 10))
	f.academic(t, sid, "Mathematics", 80, month(2024, 7, 10))

	rep, err := f.svc.Trends(context.Background(), sid)
	require.NoError(t, err)
	assert.Len(t, rep.Monthly["academic"].Buckets, 2)
	assert.Len(t, rep.Yearly["academic"].Buckets, 1)
	// May, June (carried) and July.
	assert.Len(t, rep.Monthly["epr"].Buckets, 3)
}
