package observations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
)

func TestObservationRepository(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewRepository(db, testutil.Logger(t))

	studentID := uuid.New()
	other := uuid.New()
	d1 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.AcademicRepo().Create(dbc, []*types.AcademicObservation{
		{StudentID: studentID, AcademicYear: "2024-25", Subject: "science", AssessmentType: "exam", MarksObtained: 70, TotalMarks: 100, Percentage: 70, AssessmentDate: &d2},
		{StudentID: studentID, AcademicYear: "2024-25", Subject: "mathematics", AssessmentType: "exam", MarksObtained: 80, TotalMarks: 100, Percentage: 80, AssessmentDate: &d1},
		{StudentID: studentID, AcademicYear: "2023-24", Subject: "mathematics", AssessmentType: "exam", MarksObtained: 60, TotalMarks: 100, Percentage: 60},
		{StudentID: other, AcademicYear: "2024-25", Subject: "mathematics", AssessmentType: "exam", MarksObtained: 10, TotalMarks: 100, Percentage: 10},
	})
	if err != nil {
		t.Fatalf("create academic: %v", err)
	}

	rows, err := repo.Academic(dbc, studentID, "2024-25")
	if err != nil {
		t.Fatalf("Academic: %v", err)
	}
	if len(rows) != 2 || rows[0].Subject != "mathematics" {
		t.Fatalf("Academic: expected mathematics first by assessment date, got %+v", rows)
	}

	_, err = repo.AcademicRepo().Create(dbc, []*types.AcademicObservation{
		{StudentID: studentID, AcademicYear: "2024-25", Subject: "mathematics", AssessmentType: "exam", MarksObtained: 1, TotalMarks: 100, Percentage: 1},
	})
	if err == nil {
		t.Fatalf("expected unique key violation for duplicate academic key")
	}

	early := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	dep := 22.0
	_, err = repo.PsychologicalRepo().Create(dbc, []*types.PsychologicalObservation{
		{StudentID: studentID, AcademicYear: "2024-25", AssessmentDate: late, DASSDepression: &dep},
		{StudentID: studentID, AcademicYear: "2024-25", AssessmentDate: early},
	})
	if err != nil {
		t.Fatalf("create psychological: %v", err)
	}
	latest, err := repo.LatestPsychological(dbc, studentID, "2024-25")
	if err != nil {
		t.Fatalf("LatestPsychological: %v", err)
	}
	if latest == nil || latest.DASSDepression == nil || *latest.DASSDepression != 22 {
		t.Fatalf("LatestPsychological: expected the January assessment, got %+v", latest)
	}

	none, err := repo.LatestPhysical(dbc, studentID, "")
	if err != nil || none != nil {
		t.Fatalf("LatestPhysical: expected nil, got %v err=%v", none, err)
	}

	counts, err := repo.Counts(dbc, studentID, "")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Academic != 3 || counts.Psychological != 2 || counts.Physical != 0 || counts.Total() != 5 {
		t.Fatalf("Counts: unexpected %+v", counts)
	}

	years, err := repo.Years(dbc, studentID)
	if err != nil {
		t.Fatalf("Years: %v", err)
	}
	if len(years) != 2 || years[0] != "2023-24" || years[1] != "2024-25" {
		t.Fatalf("Years: unexpected %v", years)
	}

	if err := repo.AcademicRepo().Delete(dbc, other, rows[0].ID); err != nil {
		t.Fatalf("Delete (wrong owner): %v", err)
	}
	still, err := repo.AcademicRepo().GetByID(dbc, studentID, rows[0].ID)
	if err != nil || still == nil {
		t.Fatalf("Delete must be scoped to the owning student")
	}
}

func TestDetachUpload(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewPhysicalRepo(db, testutil.Logger(t))

	uploadID := uuid.New()
	studentID := uuid.New()
	h := 160.0
	rows, err := repo.Create(dbc, []*types.PhysicalObservation{
		{StudentID: studentID, AcademicYear: "2024-25", HeightCM: &h, SourceTag: "upload", SourceUploadID: &uploadID},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	n, err := repo.DetachUpload(dbc, uploadID)
	if err != nil || n != 1 {
		t.Fatalf("DetachUpload: n=%d err=%v", n, err)
	}
	got, err := repo.GetByID(dbc, studentID, rows[0].ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.SourceUploadID != nil {
		t.Fatalf("expected source upload to be cleared")
	}
}
