package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/edusight-backend/internal/analytics"
	"github.com/yungbote/edusight-backend/internal/data/repos/issues"
	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	"github.com/yungbote/edusight-backend/internal/data/repos/summaries"
	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	uploadrepo "github.com/yungbote/edusight-backend/internal/data/repos/uploads"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainissues "github.com/yungbote/edusight-backend/internal/domain/issues"
	domainjobs "github.com/yungbote/edusight-backend/internal/domain/jobs"
	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/ingestion/extractor"
	"github.com/yungbote/edusight-backend/internal/ingestion/pipeline"
	"github.com/yungbote/edusight-backend/internal/notify"
	"github.com/yungbote/edusight-backend/internal/platform/cache"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/filestore"
	"github.com/yungbote/edusight-backend/internal/recommend"
	"github.com/yungbote/edusight-backend/internal/recompute"
	"github.com/yungbote/edusight-backend/internal/scorers"
	"github.com/yungbote/edusight-backend/internal/summary"
	"github.com/yungbote/edusight-backend/internal/validation"
	"github.com/yungbote/edusight-backend/internal/workflow"
)

type stack struct {
	obs       observations.Repository
	issues    issues.ValidationIssueRepo
	summaries summaries.YearSummaryRepo
	writes    ObservationService
	uploads   UploadService
	queries   QueryService
	jobs      JobService
	dbc       dbctx.Context
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	store, err := filestore.NewLocal(t.TempDir(), log)
	require.NoError(t, err)

	s := &stack{
		obs:       observations.NewRepository(db, log),
		issues:    issues.NewValidationIssueRepo(db, log),
		summaries: summaries.NewYearSummaryRepo(db, log),
		dbc:       dbctx.Context{Ctx: context.Background()},
	}
	profiles := students.NewStudentProfileRepo(db, log)
	uploadRepo := uploadrepo.NewDataUploadRepo(db, log)
	c := cache.NewMemory()
	v := validation.New(nil)
	sc := scorers.NewScorer(log, s.obs, profiles)
	builder := summary.NewBuilder(log, s.obs, sc, s.summaries, epr.Default())
	ctrl := recompute.New(db, log, recompute.Config{}, s.obs, profiles, s.issues, s.summaries, sc, builder,
		v, c, &notify.Memory{}, &workflow.Recorder{})
	p := pipeline.New(db, log, pipeline.Config{}, extractor.New(log, nil, nil), v, store, s.obs, uploadRepo, s.issues, profiles)
	a, err := analytics.NewService(log, analytics.Config{}, s.obs, profiles, sc, epr.Default(), analytics.Tables{}, c)
	require.NoError(t, err)

	s.writes = NewObservationService(log, ctrl, nil)
	s.uploads = NewUploadService(db, log, p, ctrl, s.obs, uploadRepo, s.issues, store)
	s.queries = NewQueryService(log, a, recommend.NewService(log, sc, profiles, epr.Default()), profiles, s.summaries)
	s.jobs = NewJobService(log, jobs.NewJobRunRepo(db, log))
	return s
}

func TestMutateReturnsUpdates(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	sid := uuid.New()

	resp, err := s.writes.Mutate(ctx, sid, "Academic", nil, map[string]any{
		"subject":          "Mathematics",
		"assessment_type":  "midterm",
		"marks_obtained":   82.0,
		"total_marks":      100,
		FieldAcademicYear: "2024-25",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotNil(t, resp.EntryID)
	require.NotNil(t, resp.Updates)
	assert.Equal(t, types.DomainAcademic, resp.Updates.Domain)
	assert.Equal(t, []string{"2024-25"}, resp.Updates.Years)
	assert.NotNil(t, resp.Updates.EPRChanges)
	assert.NotNil(t, resp.Updates.Notifications)

	del, err := s.writes.Delete(ctx, sid, "academic", *resp.EntryID)
	require.NoError(t, err)
	assert.True(t, del.Success)
}

func TestMutateFailureCarriesReason(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	resp, err := s.writes.Mutate(ctx, uuid.New(), "astrology", nil, map[string]any{"subject": "x"})
	require.Error(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, errs.KindInvalidArgument, resp.Kind)
	assert.NotEmpty(t, resp.Error)

	missing := uuid.New()
	resp, err = s.writes.Mutate(ctx, uuid.New(), "academic", &missing, map[string]any{"marks_obtained": 50})
	require.Error(t, err)
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Updates)

	_, err = s.writes.Submit(uuid.New(), "academic", nil, nil)
	assert.Error(t, err)
}

func TestBulkReportsEachEntry(t *testing.T) {
	s := newStack(t)
	sid := uuid.New()
	resp, err := s.writes.Bulk(context.Background(), sid, "academic", []map[string]any{
		{"subject": "Mathematics", "assessment_type": "unit-1", "marks_obtained": 70, "total_marks": 100, FieldAcademicYear: "2024-25"},
		{"subject": "Science", "assessment_type": "unit-1", "marks_obtained": 140, "total_marks": 100, FieldAcademicYear: "2024-25"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Items, 2)
	assert.NotNil(t, resp.Items[0].EntryID)
	require.NotNil(t, resp.Updates)
	assert.Equal(t, types.DomainAcademic, resp.Updates.Domain)
}

func TestUploadThenDeleteKeepsObservations(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	sid := uuid.New()
	csv := "Subject,Marks Obtained,Total Marks,Exam Date\nMathematics,80,100,15/10/2024\nScience,70,100,20/10/2024\n"

	resp, err := s.uploads.Upload(ctx, pipeline.Request{
		StudentID: sid,
		Filename:  "marks.csv",
		Format:    uploads.FormatCSV,
		Data:      []byte(csv),
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, 2, resp.Created.Academic)
	require.NotNil(t, resp.Updates)
	require.NotEmpty(t, resp.Years)
	sum, err := s.summaries.Get(s.dbc, sid, resp.Years[0])
	require.NoError(t, err)
	require.NotNil(t, sum)

	uploadID := resp.Upload.ID
	_, err = s.issues.Create(s.dbc, []*types.ValidationIssue{{
		StudentID:   sid,
		Domain:      string(types.DomainAcademic),
		FieldName:   "subject",
		Kind:        domainissues.KindOther,
		Severity:    domainissues.SeverityLow,
		Status:      domainissues.StatusOpen,
		Description: "check subject spelling",
		UploadID:    &uploadID,
	}})
	require.NoError(t, err)

	require.NoError(t, s.uploads.DeleteUpload(ctx, uploadID))

	_, err = s.uploads.Get(ctx, uploadID)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	rows, err := s.obs.AcademicRepo().ListByStudent(s.dbc, sid)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, o := range rows {
		assert.Nil(t, o.SourceUploadID)
	}
	open, err := s.uploads.ListIssues(ctx, issues.Filter{StudentID: sid, OpenOnly: true})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	s := newStack(t)
	resp, err := s.uploads.Upload(context.Background(), pipeline.Request{
		StudentID: uuid.New(),
		Filename:  "notes.xyz",
		Format:    "xyz",
		Data:      []byte("hello"),
	})
	require.Error(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, errs.KindUnsupportedFormat, resp.Kind)
	assert.Nil(t, resp.Upload)
}

func TestIssueTransitions(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	created, err := s.issues.Create(s.dbc, []*types.ValidationIssue{{
		StudentID:   uuid.New(),
		Domain:      string(types.DomainPhysical),
		FieldName:   "height_cm",
		Kind:        domainissues.KindRangeError,
		Severity:    domainissues.SeverityMedium,
		Status:      domainissues.StatusOpen,
		Description: "height out of range",
	}})
	require.NoError(t, err)
	id := created[0].ID

	issue, err := s.uploads.TransitionIssue(ctx, id, domainissues.StatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, domainissues.StatusInProgress, issue.Status)

	issue, err = s.uploads.TransitionIssue(ctx, id, domainissues.StatusResolved, "remeasured")
	require.NoError(t, err)
	assert.Equal(t, "remeasured", issue.ResolutionNote)
	assert.NotNil(t, issue.ResolvedAt)

	_, err = s.uploads.TransitionIssue(ctx, id, domainissues.StatusOpen, "")
	assert.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))
	_, err = s.uploads.TransitionIssue(ctx, uuid.New(), domainissues.StatusResolved, "")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	_, err = s.uploads.ListIssues(ctx, issues.Filter{})
	assert.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))
}

func TestQueriesReportInsufficientData(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	sid := uuid.New()

	pred, err := s.queries.Predict(ctx, sid, analytics.KindAcademic, "1_year")
	require.NoError(t, err)
	assert.False(t, pred.Success)
	assert.Equal(t, errs.KindInsufficientData, pred.Kind)
	assert.NotEmpty(t, pred.Message)

	rec, err := s.queries.Recommendations(ctx, sid)
	require.NoError(t, err)
	assert.False(t, rec.Success)

	_, err = s.queries.Predict(ctx, sid, "horoscope", "1_year")
	assert.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))

	_, err = s.queries.Overview(ctx, sid)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestRecommendationsAfterWrites(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	sid := uuid.New()
	for _, subject := range []string{"Mathematics", "Science", "English"} {
		_, err := s.writes.Mutate(ctx, sid, "academic", nil, map[string]any{
			"subject":          subject,
			"assessment_type":  "final",
			"marks_obtained":   40,
			"total_marks":      100,
			FieldAcademicYear: "2024-25",
		})
		require.NoError(t, err)
	}
	rec, err := s.queries.Recommendations(ctx, sid)
	require.NoError(t, err)
	require.True(t, rec.Success)
	assert.NotEmpty(t, rec.Data.ImmediateActions)

	ov, err := s.queries.Overview(ctx, sid)
	require.NoError(t, err)
	require.Len(t, ov.Summaries, 1)
	assert.Equal(t, "2024-25", ov.Summaries[0].AcademicYear)
}

func TestJobServiceLifecycle(t *testing.T) {
	s := newStack(t)
	sid := uuid.New()

	job, created, err := s.jobs.EnqueueRecompute(s.dbc, sid, true, nil)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, domainjobs.StatusQueued, job.Status)

	_, created, err = s.jobs.EnqueueRecompute(s.dbc, sid, false, []string{"2024-25"})
	require.NoError(t, err)
	assert.False(t, created)

	canceled, err := s.jobs.Cancel(s.dbc, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domainjobs.StatusCanceled, canceled.Status)

	restarted, err := s.jobs.Restart(s.dbc, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domainjobs.StatusQueued, restarted.Status)
	assert.Equal(t, 0, restarted.Attempts)

	_, err = s.jobs.Restart(s.dbc, job.ID)
	assert.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))

	batch, err := s.jobs.EnqueueBatchRecalculation(s.dbc, []uuid.UUID{sid})
	require.NoError(t, err)
	assert.Nil(t, batch.StudentID)
	assert.Contains(t, string(batch.Payload), sid.String())
}
