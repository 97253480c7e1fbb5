package summaries

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/edusight-backend/internal/data/repos/testutil"
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
)

func TestYearSummaryUpsert(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewYearSummaryRepo(db, testutil.Logger(t))

	studentID := uuid.New()
	avg := 80.0
	first := &types.YearSummary{
		StudentID:              studentID,
		AcademicYear:           "2024-25",
		AcademicCount:          1,
		OverallAcademicAverage: &avg,
		AnnualEPRScore:         &avg,
		EPRPerformanceBand:     "Healthy Progress",
		LastUpdated:            time.Now().UTC(),
	}
	if err := repo.Upsert(dbc, first); err != nil {
		t.Fatalf("Upsert #1: %v", err)
	}

	avg2 := 95.0
	second := &types.YearSummary{
		StudentID:              studentID,
		AcademicYear:           "2024-25",
		AcademicCount:          1,
		OverallAcademicAverage: &avg2,
		AnnualEPRScore:         &avg2,
		EPRPerformanceBand:     "Thriving",
		AreasOfConcern:         []string{"none"},
		LastUpdated:            time.Now().UTC(),
	}
	if err := repo.Upsert(dbc, second); err != nil {
		t.Fatalf("Upsert #2: %v", err)
	}

	all, err := repo.ListByStudent(dbc, studentID)
	if err != nil {
		t.Fatalf("ListByStudent: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected a single row per (student, year), got %d", len(all))
	}
	got := all[0]
	if got.AnnualEPRScore == nil || *got.AnnualEPRScore != 95 || got.EPRPerformanceBand != "Thriving" {
		t.Fatalf("expected updated values, got %+v", got)
	}
	if len(got.AreasOfConcern) != 1 {
		t.Fatalf("expected json column to round trip, got %v", got.AreasOfConcern)
	}

	if err := repo.Delete(dbc, studentID, "2024-25"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, err := repo.Get(dbc, studentID, "2024-25")
	if err != nil || gone != nil {
		t.Fatalf("Get after delete: %v %v", gone, err)
	}
}
