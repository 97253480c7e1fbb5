package recompute

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/domain/issues"
	domainobs "github.com/yungbote/edusight-backend/internal/domain/observations"
	"github.com/yungbote/edusight-backend/internal/ingestion/mapping"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/validation"
	"github.com/yungbote/edusight-backend/internal/workflow"
)

const (
	NoteSuperseded = "superseded by correction"
	NoteDeleted    = "observation deleted"
)

// Mutation creates (EntryID nil), corrects, or with Delete removes one
// observation. Fields are raw canonical field values; an empty value clears
// the field.
type Mutation struct {
	StudentID    uuid.UUID         `json:"student_id"`
	Domain       types.Domain      `json:"domain"`
	EntryID      *uuid.UUID        `json:"entry_id,omitempty"`
	AcademicYear string            `json:"academic_year,omitempty"`
	Fields       map[string]string `json:"fields"`
	Delete       bool              `json:"delete,omitempty"`
}

func (m Mutation) validate() error {
	if m.StudentID == uuid.Nil {
		return errs.New(errs.KindInvalidArgument, "student id required", errs.ErrInvalidArgument)
	}
	if !m.Domain.Valid() {
		return errs.New(errs.KindInvalidArgument, fmt.Sprintf("unknown entry kind %q", m.Domain), errs.ErrInvalidArgument)
	}
	if m.EntryID == nil && len(m.Fields) == 0 {
		return errs.New(errs.KindInvalidArgument, "fields required", errs.ErrInvalidArgument)
	}
	return nil
}

// applied is what one write changed.
type applied struct {
	domain  types.Domain
	entryID uuid.UUID
	// years holds the observation's year before and after the write.
	years   []string
	before  map[string]string
	after   map[string]string
	created bool
	deleted bool
	issues  []*types.ValidationIssue
	reading *workflow.Reading
}

// check validates merged raw fields; a dropped candidate aborts the write.
func (c *controller) check(d types.Domain, raw map[string]string) (validation.Result, error) {
	res := c.validator.Check(d, raw)
	if !res.Drop {
		return res, nil
	}
	var reasons []string
	for _, f := range res.Findings {
		if f.Severity == issues.SeverityCritical || f.Kind == issues.KindInconsistentData {
			reasons = append(reasons, f.Description)
		}
	}
	reason := strings.Join(reasons, "; ")
	if reason == "" {
		reason = fmt.Sprintf("%s observation is not consistent", d)
	}
	return res, errs.New(errs.KindInconsistentMutation, reason, errs.ErrInconsistentMutation)
}

// yearFor picks the academic year of a written observation: an explicit
// year, else the year implied by a changed date, else the existing year,
// else the current one.
func (c *controller) yearFor(m Mutation, existing string, v mapping.Values) string {
	if y := strings.TrimSpace(m.AcademicYear); y != "" {
		return y
	}
	_, dateChanged := m.Fields[mapping.FieldAssessmentDate]
	if _, ok := m.Fields[mapping.FieldMeasurementDate]; ok {
		dateChanged = true
	}
	if existing == "" || dateChanged {
		if t := mapping.ObservedAt(m.Domain, v); t != nil {
			return domainobs.AcademicYearFor(*t, c.cfg.AcademicYearStartMonth)
		}
	}
	if existing != "" {
		return existing
	}
	return domainobs.AcademicYearFor(c.now(), c.cfg.AcademicYearStartMonth)
}

func (c *controller) apply(dbc dbctx.Context, m Mutation) (*applied, error) {
	switch m.Domain {
	case types.DomainAcademic:
		return c.applyAcademic(dbc, m)
	case types.DomainPsychological:
		return c.applyPsychological(dbc, m)
	case types.DomainPhysical:
		return c.applyPhysical(dbc, m)
	}
	return nil, errs.New(errs.KindInvalidArgument, fmt.Sprintf("unknown entry kind %q", m.Domain), errs.ErrInvalidArgument)
}

func notFound(d types.Domain, id uuid.UUID) error {
	return errs.New(errs.KindNotFound, fmt.Sprintf("%s observation %s not found", d, id), errs.ErrNotFound)
}

func (c *controller) applyAcademic(dbc dbctx.Context, m Mutation) (*applied, error) {
	repo := c.obs.AcademicRepo()
	a := &applied{domain: m.Domain, before: map[string]string{}}
	var o *types.AcademicObservation
	if m.EntryID != nil {
		cur, err := repo.GetByID(dbc, m.StudentID, *m.EntryID)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, notFound(m.Domain, *m.EntryID)
		}
		o = cur
		a.before = mapping.RawAcademic(o)
		a.years = append(a.years, o.AcademicYear)
	}
	res, err := c.check(m.Domain, mapping.Merge(m.Domain, a.before, m.Fields))
	if err != nil {
		return nil, err
	}
	existingYear := ""
	if o == nil {
		o = &types.AcademicObservation{ID: uuid.New(), StudentID: m.StudentID, SourceTag: domainobs.SourceManual}
		a.created = true
	} else {
		existingYear = o.AcademicYear
	}
	mapping.FillAcademic(o, res.Values)
	o.AcademicYear = c.yearFor(m, existingYear, res.Values)

	dup, err := repo.GetByKey(dbc, m.StudentID, o.AcademicYear, o.Subject, o.AssessmentType)
	if err != nil {
		return nil, err
	}
	if dup != nil && dup.ID != o.ID {
		return nil, errs.New(errs.KindInconsistentMutation,
			fmt.Sprintf("%s %s already recorded for %s", o.Subject, o.AssessmentType, o.AcademicYear),
			errs.ErrInconsistentMutation)
	}
	if a.created {
		if _, err := repo.Create(dbc, []*types.AcademicObservation{o}); err != nil {
			return nil, fmt.Errorf("insert academic observation: %w", err)
		}
	} else if err := repo.Save(dbc, o); err != nil {
		return nil, fmt.Errorf("update academic observation: %w", err)
	}
	a.entryID = o.ID
	a.after = mapping.RawAcademic(o)
	a.years = append(a.years, o.AcademicYear)
	pct := o.Percentage
	a.reading = &workflow.Reading{Percentage: &pct, Subject: o.Subject}
	return a, c.replaceIssues(dbc, a, m.StudentID, res.Findings)
}

func (c *controller) applyPsychological(dbc dbctx.Context, m Mutation) (*applied, error) {
	repo := c.obs.PsychologicalRepo()
	a := &applied{domain: m.Domain, before: map[string]string{}}
	var o *types.PsychologicalObservation
	if m.EntryID != nil {
		cur, err := repo.GetByID(dbc, m.StudentID, *m.EntryID)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, notFound(m.Domain, *m.EntryID)
		}
		o = cur
		a.before = mapping.RawPsychological(o)
		a.years = append(a.years, o.AcademicYear)
	}
	res, err := c.check(m.Domain, mapping.Merge(m.Domain, a.before, m.Fields))
	if err != nil {
		return nil, err
	}
	existingYear := ""
	if o == nil {
		o = &types.PsychologicalObservation{ID: uuid.New(), StudentID: m.StudentID, SourceTag: domainobs.SourceManual, AssessmentDate: c.now()}
		a.created = true
	} else {
		existingYear = o.AcademicYear
	}
	mapping.FillPsychological(o, res.Values)
	o.AcademicYear = c.yearFor(m, existingYear, res.Values)
	if a.created {
		if _, err := repo.Create(dbc, []*types.PsychologicalObservation{o}); err != nil {
			return nil, fmt.Errorf("insert psychological observation: %w", err)
		}
	} else if err := repo.Save(dbc, o); err != nil {
		return nil, fmt.Errorf("update psychological observation: %w", err)
	}
	a.entryID = o.ID
	a.after = mapping.RawPsychological(o)
	a.years = append(a.years, o.AcademicYear)
	a.reading = &workflow.Reading{DASSStress: o.DASSStress, DASSDepression: o.DASSDepression}
	return a, c.replaceIssues(dbc, a, m.StudentID, res.Findings)
}

func (c *controller) applyPhysical(dbc dbctx.Context, m Mutation) (*applied, error) {
	repo := c.obs.PhysicalRepo()
	a := &applied{domain: m.Domain, before: map[string]string{}}
	var o *types.PhysicalObservation
	if m.EntryID != nil {
		cur, err := repo.GetByID(dbc, m.StudentID, *m.EntryID)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, notFound(m.Domain, *m.EntryID)
		}
		o = cur
		a.before = mapping.RawPhysical(o)
		a.years = append(a.years, o.AcademicYear)
	}
	res, err := c.check(m.Domain, mapping.Merge(m.Domain, a.before, m.Fields))
	if err != nil {
		return nil, err
	}
	existingYear := ""
	if o == nil {
		o = &types.PhysicalObservation{ID: uuid.New(), StudentID: m.StudentID, SourceTag: domainobs.SourceManual, MeasurementDate: c.now()}
		a.created = true
	} else {
		existingYear = o.AcademicYear
	}
	mapping.FillPhysical(o, res.Values)
	o.AcademicYear = c.yearFor(m, existingYear, res.Values)
	if a.created {
		if _, err := repo.Create(dbc, []*types.PhysicalObservation{o}); err != nil {
			return nil, fmt.Errorf("insert physical observation: %w", err)
		}
	} else if err := repo.Save(dbc, o); err != nil {
		return nil, fmt.Errorf("update physical observation: %w", err)
	}
	a.entryID = o.ID
	a.after = mapping.RawPhysical(o)
	a.years = append(a.years, o.AcademicYear)
	return a, c.replaceIssues(dbc, a, m.StudentID, res.Findings)
}

// replaceIssues closes the issues raised against the previous values and
// records the findings for the new ones.
func (c *controller) replaceIssues(dbc dbctx.Context, a *applied, studentID uuid.UUID, findings []validation.Finding) error {
	if !a.created {
		if _, err := c.issues.DismissForObservation(dbc, a.entryID, NoteSuperseded); err != nil {
			return fmt.Errorf("dismiss superseded issues: %w", err)
		}
	}
	if len(findings) == 0 {
		return nil
	}
	rows := make([]*types.ValidationIssue, 0, len(findings))
	for _, f := range findings {
		is := f.Issue(studentID, a.domain)
		id := a.entryID
		is.ObservationID = &id
		rows = append(rows, is)
	}
	saved, err := c.issues.Create(dbc, rows)
	if err != nil {
		return fmt.Errorf("insert validation issues: %w", err)
	}
	a.issues = saved
	return nil
}

func (c *controller) remove(dbc dbctx.Context, studentID uuid.UUID, d types.Domain, id uuid.UUID) (*applied, error) {
	a := &applied{domain: d, entryID: id, deleted: true, after: map[string]string{}}
	switch d {
	case types.DomainAcademic:
		o, err := c.obs.AcademicRepo().GetByID(dbc, studentID, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, notFound(d, id)
		}
		a.before, a.years = mapping.RawAcademic(o), []string{o.AcademicYear}
		err = c.obs.AcademicRepo().Delete(dbc, studentID, id)
		if err != nil {
			return nil, fmt.Errorf("delete academic observation: %w", err)
		}
	case types.DomainPsychological:
		o, err := c.obs.PsychologicalRepo().GetByID(dbc, studentID, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, notFound(d, id)
		}
		a.before, a.years = mapping.RawPsychological(o), []string{o.AcademicYear}
		if err := c.obs.PsychologicalRepo().Delete(dbc, studentID, id); err != nil {
			return nil, fmt.Errorf("delete psychological observation: %w", err)
		}
	case types.DomainPhysical:
		o, err := c.obs.PhysicalRepo().GetByID(dbc, studentID, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, notFound(d, id)
		}
		a.before, a.years = mapping.RawPhysical(o), []string{o.AcademicYear}
		if err := c.obs.PhysicalRepo().Delete(dbc, studentID, id); err != nil {
			return nil, fmt.Errorf("delete physical observation: %w", err)
		}
	default:
		return nil, errs.New(errs.KindInvalidArgument, fmt.Sprintf("unknown entry kind %q", d), errs.ErrInvalidArgument)
	}
	if _, err := c.issues.DismissForObservation(dbc, id, NoteDeleted); err != nil {
		return nil, fmt.Errorf("dismiss issues of deleted observation: %w", err)
	}
	return a, nil
}

func (c *controller) now() time.Time { return c.clock().UTC() }
