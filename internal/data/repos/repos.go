package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/data/repos/issues"
	"github.com/yungbote/edusight-backend/internal/data/repos/jobs"
	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	"github.com/yungbote/edusight-backend/internal/data/repos/summaries"
	"github.com/yungbote/edusight-backend/internal/data/repos/uploads"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type StudentProfileRepo = students.StudentProfileRepo
type ObservationRepository = observations.Repository
type AcademicRepo = observations.AcademicRepo
type PsychologicalRepo = observations.PsychologicalRepo
type PhysicalRepo = observations.PhysicalRepo
type ObservationCounts = observations.Counts
type DataUploadRepo = uploads.DataUploadRepo
type ValidationIssueRepo = issues.ValidationIssueRepo
type IssueFilter = issues.Filter
type YearSummaryRepo = summaries.YearSummaryRepo
type JobRunRepo = jobs.JobRunRepo

// Set bundles every repository over one database handle.
type Set struct {
	Students     StudentProfileRepo
	Observations ObservationRepository
	Uploads      DataUploadRepo
	Issues       ValidationIssueRepo
	Summaries    YearSummaryRepo
	Jobs         JobRunRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Students:     students.NewStudentProfileRepo(db, log),
		Observations: observations.NewRepository(db, log),
		Uploads:      uploads.NewDataUploadRepo(db, log),
		Issues:       issues.NewValidationIssueRepo(db, log),
		Summaries:    summaries.NewYearSummaryRepo(db, log),
		Jobs:         jobs.NewJobRunRepo(db, log),
	}
}
