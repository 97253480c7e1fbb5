// Package pipeline turns an uploaded file into observations: it extracts
// tables or text, detects the domain, maps and validates rows, and writes
// observations, validation issues and the upload outcome in one transaction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/data/repos/issues"
	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	uploadrepo "github.com/yungbote/edusight-backend/internal/data/repos/uploads"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainissues "github.com/yungbote/edusight-backend/internal/domain/issues"
	domainobs "github.com/yungbote/edusight-backend/internal/domain/observations"
	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/ingestion/extractor"
	"github.com/yungbote/edusight-backend/internal/ingestion/mapping"
	"github.com/yungbote/edusight-backend/internal/observability"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/filestore"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/validation"
)

const ReasonTimeout = "timeout"

// Created holds the observations an upload produced.
type Created struct {
	Academic      []*types.AcademicObservation
	Psychological []*types.PsychologicalObservation
	Physical      []*types.PhysicalObservation
}

func (c Created) Count() int { return len(c.Academic) + len(c.Psychological) + len(c.Physical) }

func (c Created) Counts() observations.Counts {
	return observations.Counts{Academic: len(c.Academic), Psychological: len(c.Psychological), Physical: len(c.Physical)}
}

// Domains lists the domains that received at least one observation.
func (c Created) Domains() []types.Domain {
	var out []types.Domain
	if len(c.Academic) > 0 {
		out = append(out, types.DomainAcademic)
	}
	if len(c.Psychological) > 0 {
		out = append(out, types.DomainPsychological)
	}
	if len(c.Physical) > 0 {
		out = append(out, types.DomainPhysical)
	}
	return out
}

type Result struct {
	Upload  *types.DataUpload
	Created Created
	// Years are the academic years the new observations fall in, ascending.
	Years  []string
	Issues []*types.ValidationIssue
}

type Pipeline interface {
	// Ingest validates and stores the request, then processes it under the
	// configured timeout. Requests rejected before any write return only an
	// error; later failures also return the failed upload.
	Ingest(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	db         *gorm.DB
	log        *logger.Logger
	cfg        Config
	extractors *extractor.Set
	validator  *validation.Validator
	store      filestore.Store
	obs        observations.Repository
	uploads    uploadrepo.DataUploadRepo
	issues     issues.ValidationIssueRepo
	profiles   students.StudentProfileRepo
	now        func() time.Time
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg Config,
	extractors *extractor.Set,
	v *validation.Validator,
	store filestore.Store,
	obs observations.Repository,
	uploadRepo uploadrepo.DataUploadRepo,
	issueRepo issues.ValidationIssueRepo,
	profiles students.StudentProfileRepo,
) Pipeline {
	if v == nil {
		v = validation.New(nil)
	}
	return &service{
		db:         db,
		log:        baseLog.With("service", "IngestionPipeline"),
		cfg:        cfg.withDefaults(),
		extractors: extractors,
		validator:  v,
		store:      store,
		obs:        obs,
		uploads:    uploadRepo,
		issues:     issueRepo,
		profiles:   profiles,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var tracer = observability.Tracer("ingestion")

func (s *service) Ingest(ctx context.Context, req Request) (res *Result, err error) {
	ctx, span := observability.StartSpan(ctx, tracer, "ingestion.ingest",
		attribute.String("upload.format", string(req.Format)),
		attribute.String("upload.filename", req.Filename),
		attribute.Int("upload.size_bytes", len(req.Data)),
	)
	start := s.now()
	defer func() {
		observability.EndSpan(span, err)
		m := observability.Current()
		m.ObserveUpload(string(req.Format), err, s.now().Sub(start))
		if res != nil {
			for _, is := range res.Issues {
				m.IncValidationIssue(is.Domain, string(is.Kind))
			}
		}
	}()

	if err := req.check(s.cfg.MaxBytes); err != nil {
		return nil, err
	}
	ex, err := s.extractors.For(req.Format)
	if err != nil {
		return nil, err
	}

	upload := &types.DataUpload{
		ID:               uuid.New(),
		StudentID:        req.StudentID,
		OriginalFilename: req.Filename,
		SizeBytes:        int64(len(req.Data)),
		Format:           req.Format,
		DomainHint:       req.DomainHint,
		AcademicYear:     req.AcademicYear,
		Description:      req.Description,
		Status:           uploads.StatusProcessing,
	}
	upload.StorageKey = filestore.UploadKey(req.StudentID.String(), upload.ID.String(), req.Filename)
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.profiles.Ensure(dbc, req.StudentID); err != nil {
		return nil, fmt.Errorf("ensure student profile: %w", err)
	}
	if err := s.uploads.Create(dbc, upload); err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	res = &Result{Upload: upload}
	span.SetAttributes(attribute.String("upload.id", upload.ID.String()))

	if s.store != nil {
		if err := s.store.Put(ctx, upload.StorageKey, req.Data, req.ContentType); err != nil {
			s.log.Warn("upload bytes not stored", "upload_id", upload.ID, "error", err)
			return res, s.fail(ctx, upload, "file storage unavailable", err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	if err := s.process(runCtx, req, ex, res); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = errs.New(errs.KindParseFailure, ReasonTimeout, fmt.Errorf("%w: %v", errs.ErrTimeout, err))
		}
		res.Created = Created{}
		res.Years = nil
		res.Issues = nil
		return res, s.fail(ctx, upload, errs.Reason(err), err)
	}
	return res, nil
}

// fail marks the upload failed and returns cause. It uses the caller's
// context so a timed-out run can still record its outcome.
func (s *service) fail(ctx context.Context, upload *types.DataUpload, reason string, cause error) error {
	now := s.now()
	upload.Status = uploads.StatusFailed
	upload.FailureReason = reason
	upload.ProcessedAt = &now
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	if err := s.uploads.UpdateFields(dbc, upload.ID, map[string]interface{}{
		"status":         uploads.StatusFailed,
		"failure_reason": reason,
		"processed_at":   now,
	}); err != nil {
		s.log.Error("mark upload failed", "upload_id", upload.ID, "error", err)
	}
	s.log.Warn("upload failed", "upload_id", upload.ID, "student_id", upload.StudentID, "reason", reason)
	return cause
}

func (s *service) process(ctx context.Context, req Request, ex extractor.TextExtractor, res *Result) error {
	ectx, espan := observability.StartSpan(ctx, tracer, "ingestion.extract")
	extraction, err := ex.Extract(ectx, req.Filename, req.Data)
	observability.EndSpan(espan, err)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, w := range extraction.Warnings {
		s.log.Debug("extraction warning", "upload_id", res.Upload.ID, "warning", w)
	}

	p := planner{v: s.validator, hint: types.Domain(req.DomainHint)}.build(extraction)
	fallbackYear := req.AcademicYear
	if fallbackYear == "" {
		fallbackYear = domainobs.AcademicYearFor(s.now(), s.cfg.AcademicYearStartMonth)
	}
	yearOf := func(c candidate) string {
		if req.AcademicYear != "" {
			return req.AcademicYear
		}
		if t := mapping.ObservedAt(c.domain, c.values); t != nil {
			return domainobs.AcademicYearFor(*t, s.cfg.AcademicYearStartMonth)
		}
		return fallbackYear
	}
	dedupeAcademic(p.candidates, yearOf)

	pctx, pspan := observability.StartSpan(ctx, tracer, "ingestion.persist",
		attribute.String("upload.detected_domain", string(p.detected)),
		attribute.Int("upload.rows", p.total),
	)
	err = s.db.WithContext(pctx).Transaction(func(tx *gorm.DB) error {
		return s.persist(dbctx.Context{Ctx: pctx, Tx: tx}, req, res, p, yearOf, extraction.OCR)
	})
	observability.EndSpan(pspan, err)
	if err != nil {
		return err
	}
	s.log.Info("upload processed",
		"upload_id", res.Upload.ID,
		"student_id", res.Upload.StudentID,
		"status", res.Upload.Status,
		"domain", res.Upload.DetectedDomain,
		"observations", res.Created.Count(),
		"issues", len(res.Issues),
		"confidence", res.Upload.Confidence,
	)
	return nil
}

func (s *service) persist(dbc dbctx.Context, req Request, res *Result, p *plan, yearOf func(candidate) string, ocr bool) error {
	upload := res.Upload
	type pending struct {
		c     *candidate
		obsID *uuid.UUID
	}
	var (
		queue   []pending
		created Created
		years   = map[string]bool{}
	)

	for i := range p.candidates {
		c := &p.candidates[i]
		if c.drop {
			queue = append(queue, pending{c: c})
			continue
		}
		year := yearOf(*c)
		switch c.domain {
		case types.DomainAcademic:
			o := &types.AcademicObservation{ID: uuid.New(), StudentID: req.StudentID, AcademicYear: year}
			mapping.FillAcademic(o, c.values)
			existing, err := s.obs.AcademicRepo().GetByKey(dbc, req.StudentID, year, o.Subject, o.AssessmentType)
			if err != nil {
				return err
			}
			if existing != nil {
				c.drop = true
				c.findings = append(c.findings, duplicateFinding(c.values))
				queue = append(queue, pending{c: c})
				continue
			}
			tagUpload(&o.SourceTag, &o.SourceUploadID, upload.ID)
			created.Academic = append(created.Academic, o)
			queue = append(queue, pending{c: c, obsID: &o.ID})
		case types.DomainPsychological:
			o := &types.PsychologicalObservation{ID: uuid.New(), StudentID: req.StudentID, AcademicYear: year, AssessmentDate: s.now()}
			mapping.FillPsychological(o, c.values)
			tagUpload(&o.SourceTag, &o.SourceUploadID, upload.ID)
			created.Psychological = append(created.Psychological, o)
			queue = append(queue, pending{c: c, obsID: &o.ID})
		case types.DomainPhysical:
			o := &types.PhysicalObservation{ID: uuid.New(), StudentID: req.StudentID, AcademicYear: year, MeasurementDate: s.now()}
			mapping.FillPhysical(o, c.values)
			tagUpload(&o.SourceTag, &o.SourceUploadID, upload.ID)
			created.Physical = append(created.Physical, o)
			queue = append(queue, pending{c: c, obsID: &o.ID})
		default:
			continue
		}
		years[year] = true
	}

	if _, err := s.obs.AcademicRepo().Create(dbc, created.Academic); err != nil {
		return fmt.Errorf("insert academic observations: %w", err)
	}
	if _, err := s.obs.PsychologicalRepo().Create(dbc, created.Psychological); err != nil {
		return fmt.Errorf("insert psychological observations: %w", err)
	}
	if _, err := s.obs.PhysicalRepo().Create(dbc, created.Physical); err != nil {
		return fmt.Errorf("insert physical observations: %w", err)
	}

	// Rows whose candidates were dropped after planning are marked here.
	dropped := map[string]bool{}
	var findings []validation.Finding
	var rows []*types.ValidationIssue
	for _, q := range queue {
		if q.c.drop {
			dropped[rowKey(q.c.sheet, q.c.domain, q.c.index)] = true
		}
		for _, f := range q.c.findings {
			is := f.Issue(req.StudentID, q.c.domain)
			is.UploadID = &upload.ID
			is.ObservationID = q.obsID
			idx := q.c.index
			is.RowIndex = &idx
			rows = append(rows, is)
			findings = append(findings, f)
		}
	}
	for _, f := range p.notes {
		is := f.Issue(req.StudentID, p.detected)
		is.UploadID = &upload.ID
		rows = append(rows, is)
		findings = append(findings, f)
	}

	confidence := p.confidence()
	if confidence < s.cfg.LowConfidenceThreshold {
		var flagged []flaggedCandidate
		for _, q := range queue {
			if !q.c.drop {
				flagged = append(flagged, flaggedCandidate{c: q.c, obsID: q.obsID})
			}
		}
		for _, lc := range lowConfidence(flagged, confidence, p.textBased || ocr) {
			is := lc.f.Issue(req.StudentID, lc.domain)
			is.UploadID = &upload.ID
			is.ObservationID = lc.obsID
			rows = append(rows, is)
			findings = append(findings, lc.f)
		}
	}

	for i := range p.rows {
		r := &p.rows[i]
		if r.Status == uploads.RowStatusExtracted && dropped[rowKey(r.Sheet, types.Domain(r.Kind), r.Index)] {
			r.Status = uploads.RowStatusDropped
		}
	}

	saved, err := s.issues.Create(dbc, rows)
	if err != nil {
		return fmt.Errorf("insert validation issues: %w", err)
	}

	worst := validation.Worst(findings)
	status := uploads.StatusCompleted
	if worst == domainissues.SeverityCritical || confidence < s.cfg.LowConfidenceThreshold || created.Count() == 0 {
		status = uploads.StatusNeedsReview
	}
	now := s.now()
	if err := s.uploads.UpdateFields(dbc, upload.ID, map[string]interface{}{
		"status":          status,
		"detected_domain": string(p.primaryDomain()),
		"extracted_rows":  datatypes.NewJSONSlice(p.rows),
		"confidence":      confidence,
		"issue_count":     len(saved),
		"worst_severity":  string(worst),
		"failure_reason":  "",
		"processed_at":    now,
	}); err != nil {
		return fmt.Errorf("update upload: %w", err)
	}

	upload.Status = status
	upload.DetectedDomain = string(p.primaryDomain())
	upload.ExtractedRows = datatypes.NewJSONSlice(p.rows)
	upload.Confidence = confidence
	upload.IssueCount = len(saved)
	upload.WorstSeverity = string(worst)
	upload.ProcessedAt = &now

	res.Created = created
	res.Years = sortedKeys(years)
	res.Issues = saved
	return nil
}

func tagUpload(tag *string, src **uuid.UUID, uploadID uuid.UUID) {
	*tag = domainobs.SourceUpload
	id := uploadID
	*src = &id
}

func rowKey(sheet string, d types.Domain, index int) string {
	return fmt.Sprintf("%s\x00%s\x00%d", sheet, d, index)
}
