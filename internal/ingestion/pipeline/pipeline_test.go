package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/data/repos/issues"
	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	uploadrepo "github.com/yungbote/edusight-backend/internal/data/repos/uploads"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainissues "github.com/yungbote/edusight-backend/internal/domain/issues"
	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/ingestion/extractor"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/filestore"
	"github.com/yungbote/edusight-backend/internal/validation"
)

type fixedExtractor struct {
	out *extractor.Extraction
}

func (f fixedExtractor) Extract(ctx context.Context, filename string, data []byte) (*extractor.Extraction, error) {
	return f.out, nil
}

type blockingExtractor struct{}

func (blockingExtractor) Extract(ctx context.Context, filename string, data []byte) (*extractor.Extraction, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type harness struct {
	db       *gorm.DB
	set      *extractor.Set
	pipeline Pipeline
	obs      observations.Repository
	uploads  uploadrepo.DataUploadRepo
	issues   issues.ValidationIssueRepo
	dbc      dbctx.Context
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	store, err := filestore.NewLocal(t.TempDir(), log)
	require.NoError(t, err)
	h := &harness{
		db:      db,
		set:     extractor.New(log, nil, nil),
		obs:     observations.NewRepository(db, log),
		uploads: uploadrepo.NewDataUploadRepo(db, log),
		issues:  issues.NewValidationIssueRepo(db, log),
		dbc:     dbctx.Context{Ctx: context.Background()},
	}
	h.pipeline = New(db, log, cfg, h.set, validation.New(nil), store, h.obs, h.uploads, h.issues, students.NewStudentProfileRepo(db, log))
	return h
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *types.DataUpload {
	t.Helper()
	u, err := h.uploads.GetByID(h.dbc, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func TestIngestCSVAcademic(t *testing.T) {
	h := newHarness(t, Config{})
	student := uuid.New()
	csv := "Subject,Marks Obtained,Total Marks,Exam Date\nMathematics,80,100,15/10/2024\nScience,70,100,20/10/2024\n"

	res, err := h.pipeline.Ingest(context.Background(), Request{
		StudentID: student,
		Filename:  "marks.csv",
		Format:    uploads.FormatCSV,
		Data:      []byte(csv),
	})
	require.NoError(t, err)
	require.Len(t, res.Created.Academic, 2)
	assert.Equal(t, []string{"2024-25"}, res.Years)
	assert.Equal(t, []types.Domain{types.DomainAcademic}, res.Created.Domains())

	u := h.reload(t, res.Upload.ID)
	assert.Equal(t, uploads.StatusCompleted, u.Status)
	assert.Equal(t, "academic", u.DetectedDomain)
	assert.InDelta(t, 0.3, u.Confidence, 1e-9)
	assert.Len(t, u.ExtractedRows, 2)

	rows, err := h.obs.Academic(h.dbc, student, "2024-25")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "mathematics", rows[0].Subject)
	assert.Equal(t, 80.0, rows[0].Percentage)
	assert.Equal(t, "A", rows[0].LetterGrade)
	require.NotNil(t, rows[0].SourceUploadID)
	assert.Equal(t, res.Upload.ID, *rows[0].SourceUploadID)
}

func TestIngestDropsInconsistentRowAndFlagsReview(t *testing.T) {
	h := newHarness(t, Config{})
	student := uuid.New()
	csv := "Subject,Marks,Total\nMathematics,80,100\nScience,120,100\n"

	res, err := h.pipeline.Ingest(context.Background(), Request{
		StudentID:    student,
		Filename:     "marks.csv",
		Format:       uploads.FormatCSV,
		AcademicYear: "2024-25",
		Data:         []byte(csv),
	})
	require.NoError(t, err)
	assert.Len(t, res.Created.Academic, 1)

	u := h.reload(t, res.Upload.ID)
	assert.Equal(t, uploads.StatusNeedsReview, u.Status)
	assert.InDelta(t, 0.15, u.Confidence, 1e-9)
	require.Len(t, u.ExtractedRows, 2)
	assert.Equal(t, uploads.RowStatusExtracted, u.ExtractedRows[0].Status)
	assert.Equal(t, uploads.RowStatusDropped, u.ExtractedRows[1].Status)

	list, err := h.issues.List(h.dbc, issues.Filter{StudentID: student, UploadID: &res.Upload.ID})
	require.NoError(t, err)
	codes := map[string]int{}
	for _, is := range list {
		codes[is.Code]++
	}
	assert.Equal(t, 1, codes[domainissues.CodeInconsistent])
	assert.Equal(t, 1, codes[domainissues.CodeLowConfidence])
	assert.Equal(t, u.IssueCount, len(list))
}

func TestIngestDuplicateAcademicKey(t *testing.T) {
	h := newHarness(t, Config{})
	student := uuid.New()
	req := Request{
		StudentID:    student,
		Filename:     "marks.csv",
		Format:       uploads.FormatCSV,
		AcademicYear: "2024-25",
		Data:         []byte("Subject,Marks\nMathematics,80\nMathematics,85\n"),
	}
	res, err := h.pipeline.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Created.Academic, 1)

	res2, err := h.pipeline.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res2.Created.Academic)
	assert.Equal(t, uploads.StatusNeedsReview, res2.Upload.Status)

	rows, err := h.obs.Academic(h.dbc, student, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 80.0, rows[0].MarksObtained)
}

func TestIngestRejectsOversizedFile(t *testing.T) {
	h := newHarness(t, Config{MaxBytes: 16})
	student := uuid.New()
	_, err := h.pipeline.Ingest(context.Background(), Request{
		StudentID: student,
		Filename:  "big.csv",
		Format:    uploads.FormatCSV,
		Data:      []byte("subject,marks\nmathematics,80\n"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSizeExceeded))

	list, err := h.uploads.ListByStudent(h.dbc, student)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestIngestRejectsUnknownFormat(t *testing.T) {
	h := newHarness(t, Config{})
	_, err := h.pipeline.Ingest(context.Background(), Request{
		StudentID: uuid.New(),
		Filename:  "clip.mp4",
		Format:    "video",
		Data:      []byte("x"),
	})
	assert.True(t, errors.Is(err, errs.ErrUnsupportedFormat))
}

func TestIngestTimeoutLeavesNoObservations(t *testing.T) {
	h := newHarness(t, Config{Timeout: 20 * time.Millisecond})
	h.set.With(uploads.FormatPDF, blockingExtractor{})
	student := uuid.New()

	res, err := h.pipeline.Ingest(context.Background(), Request{
		StudentID: student,
		Filename:  "scan.pdf",
		Format:    uploads.FormatPDF,
		Data:      []byte("%PDF-1.4"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTimeout))
	require.NotNil(t, res)

	u := h.reload(t, res.Upload.ID)
	assert.Equal(t, uploads.StatusFailed, u.Status)
	assert.Equal(t, ReasonTimeout, u.FailureReason)

	counts, err := h.obs.Counts(h.dbc, student, "")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Total())
}

func TestIngestParseFailure(t *testing.T) {
	h := newHarness(t, Config{})
	res, err := h.pipeline.Ingest(context.Background(), Request{
		StudentID: uuid.New(),
		Filename:  "empty.csv",
		Format:    uploads.FormatCSV,
		Data:      []byte("\n\n"),
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindParseFailure, errs.KindOf(err))
	u := h.reload(t, res.Upload.ID)
	assert.Equal(t, uploads.StatusFailed, u.Status)
	assert.Equal(t, "csv has no rows", u.FailureReason)
}

func TestIngestOCRPhysical(t *testing.T) {
	h := newHarness(t, Config{})
	h.set.With(uploads.FormatImage, fixedExtractor{out: &extractor.Extraction{
		Format: uploads.FormatImage,
		Text:   "School health check\nHeight: 160 cm\nWeight: 54 kg",
		OCR:    true,
	}})
	student := uuid.New()

	res, err := h.pipeline.Ingest(context.Background(), Request{
		StudentID:    student,
		Filename:     "card.jpg",
		Format:       uploads.FormatImage,
		AcademicYear: "2024-25",
		Data:         []byte("jpeg"),
	})
	require.NoError(t, err)
	require.Len(t, res.Created.Physical, 1)
	p := res.Created.Physical[0]
	require.NotNil(t, p.BMI)
	assert.InDelta(t, 21.09, *p.BMI, 0.005)
	assert.InDelta(t, 0.1+0.7*2.0/6.0, res.Upload.Confidence, 1e-9)
	assert.Equal(t, uploads.StatusCompleted, res.Upload.Status)
	assert.Equal(t, "physical", res.Upload.DetectedDomain)
}

func TestIngestOCRLowConfidenceFlagsEachField(t *testing.T) {
	h := newHarness(t, Config{})
	h.set.With(uploads.FormatImage, fixedExtractor{out: &extractor.Extraction{
		Format: uploads.FormatImage,
		Text:   "Height: 150 cm",
		OCR:    true,
	}})
	student := uuid.New()
	res, err := h.pipeline.Ingest(context.Background(), Request{
		StudentID: student,
		Filename:  "card.png",
		Format:    uploads.FormatImage,
		Data:      []byte("png"),
	})
	require.NoError(t, err)
	require.Len(t, res.Created.Physical, 1)
	assert.Equal(t, uploads.StatusNeedsReview, res.Upload.Status)

	var flagged []string
	for _, is := range res.Issues {
		if is.Code == domainissues.CodeLowConfidence {
			flagged = append(flagged, is.FieldName)
			require.NotNil(t, is.ObservationID)
			assert.Equal(t, res.Created.Physical[0].ID, *is.ObservationID)
		}
	}
	assert.Equal(t, []string{"height_cm"}, flagged)
}

func TestIngestDetectsEachSheet(t *testing.T) {
	h := newHarness(t, Config{})
	h.set.With(uploads.FormatSpreadsheet, fixedExtractor{out: &extractor.Extraction{
		Format: uploads.FormatSpreadsheet,
		Tables: []extractor.Table{
			{Name: "Marks", Rows: [][]string{{"Subject", "Marks"}, {"English", "72"}}},
			{Name: "Fitness", Rows: [][]string{{"Height", "Weight", "Locker"}, {"150", "45", "B12"}}},
		},
	}})
	student := uuid.New()
	res, err := h.pipeline.Ingest(context.Background(), Request{
		StudentID:    student,
		Filename:     "book.xlsx",
		Format:       uploads.FormatSpreadsheet,
		AcademicYear: "2024-25",
		Data:         []byte("xlsx"),
	})
	require.NoError(t, err)
	assert.Len(t, res.Created.Academic, 1)
	assert.Len(t, res.Created.Physical, 1)
	assert.Equal(t, []types.Domain{types.DomainAcademic, types.DomainPhysical}, res.Created.Domains())

	var unmapped int
	for _, is := range res.Issues {
		if is.Code == domainissues.CodeUnmappedColumn {
			unmapped++
			assert.Equal(t, "Locker", is.FieldName)
		}
	}
	assert.Equal(t, 1, unmapped)
	assert.Equal(t, uploads.StatusCompleted, res.Upload.Status)
}

func TestIngestUnknownDomainNeedsReview(t *testing.T) {
	h := newHarness(t, Config{})
	res, err := h.pipeline.Ingest(context.Background(), Request{
		StudentID: uuid.New(),
		Filename:  "lockers.csv",
		Format:    uploads.FormatCSV,
		Data:      []byte("Locker,Colour\nB12,blue\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, uploads.StatusNeedsReview, res.Upload.Status)
	assert.Equal(t, "generic", res.Upload.DetectedDomain)
	require.Len(t, res.Upload.ExtractedRows, 1)
	assert.Equal(t, uploads.RowUnknown, res.Upload.ExtractedRows[0].Kind)
}
