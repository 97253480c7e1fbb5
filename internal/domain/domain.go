// Package domain re-exports the persisted model types so callers can import a
// single package.
package domain

import (
	"github.com/yungbote/edusight-backend/internal/domain/issues"
	"github.com/yungbote/edusight-backend/internal/domain/jobs"
	"github.com/yungbote/edusight-backend/internal/domain/observations"
	"github.com/yungbote/edusight-backend/internal/domain/students"
	"github.com/yungbote/edusight-backend/internal/domain/summaries"
	"github.com/yungbote/edusight-backend/internal/domain/uploads"
)

type (
	StudentProfile           = students.StudentProfile
	AcademicObservation      = observations.AcademicObservation
	PsychologicalObservation = observations.PsychologicalObservation
	PhysicalObservation      = observations.PhysicalObservation
	Domain                   = observations.Domain
	DataUpload               = uploads.DataUpload
	UploadFormat             = uploads.Format
	ExtractedRow             = uploads.ExtractedRow
	ValidationIssue          = issues.ValidationIssue
	IssueKind                = issues.Kind
	IssueSeverity            = issues.Severity
	IssueStatus              = issues.Status
	YearSummary              = summaries.YearSummary
	JobRun                   = jobs.JobRun
)

const (
	DomainAcademic      = observations.DomainAcademic
	DomainPsychological = observations.DomainPsychological
	DomainPhysical      = observations.DomainPhysical
	DomainGeneric       = observations.DomainGeneric
)

// Domains lists the three observation domains in their canonical order.
func Domains() []Domain {
	return []Domain{DomainAcademic, DomainPsychological, DomainPhysical}
}

// Models lists every table for AutoMigrate, parents first.
func Models() []interface{} {
	return []interface{}{
		&StudentProfile{},
		&DataUpload{},
		&AcademicObservation{},
		&PsychologicalObservation{},
		&PhysicalObservation{},
		&ValidationIssue{},
		&YearSummary{},
		&JobRun{},
	}
}
