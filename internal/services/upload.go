package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/data/repos/issues"
	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	uploadrepo "github.com/yungbote/edusight-backend/internal/data/repos/uploads"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainissues "github.com/yungbote/edusight-backend/internal/domain/issues"
	"github.com/yungbote/edusight-backend/internal/ingestion/pipeline"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/filestore"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/recompute"
	"github.com/yungbote/edusight-backend/internal/validation"
	"github.com/yungbote/edusight-backend/internal/workflow"
)

type CreatedCounts struct {
	Academic      int `json:"academic"`
	Psychological int `json:"psychological"`
	Physical      int `json:"physical"`
}

type UploadResponse struct {
	Success bool                     `json:"success"`
	Upload  *types.DataUpload        `json:"upload,omitempty"`
	Created CreatedCounts            `json:"created"`
	Years   []string                 `json:"years"`
	Issues  []*types.ValidationIssue `json:"issues"`
	Updates *Updates                 `json:"updates,omitempty"`
	Error   string                   `json:"error,omitempty"`
	Kind    errs.Kind                `json:"kind,omitempty"`
}

type UploadService interface {
	// Upload ingests the file and refreshes the student's summaries for the
	// years it touched.
	Upload(ctx context.Context, req pipeline.Request) (*UploadResponse, error)
	Get(ctx context.Context, uploadID uuid.UUID) (*types.DataUpload, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*types.DataUpload, error)
	// DeleteUpload keeps the observations it produced but detaches them, and
	// dismisses its open issues.
	DeleteUpload(ctx context.Context, uploadID uuid.UUID) error
	ListIssues(ctx context.Context, f issues.Filter) ([]*types.ValidationIssue, error)
	TransitionIssue(ctx context.Context, issueID uuid.UUID, to domainissues.Status, note string) (*types.ValidationIssue, error)
}

type uploadService struct {
	db       *gorm.DB
	log      *logger.Logger
	pipeline pipeline.Pipeline
	ctrl     recompute.Controller
	obs      observations.Repository
	uploads  uploadrepo.DataUploadRepo
	issues   issues.ValidationIssueRepo
	store    filestore.Store
	now      func() time.Time
}

func NewUploadService(
	db *gorm.DB,
	baseLog *logger.Logger,
	p pipeline.Pipeline,
	ctrl recompute.Controller,
	obs observations.Repository,
	uploadRepo uploadrepo.DataUploadRepo,
	issueRepo issues.ValidationIssueRepo,
	store filestore.Store,
) UploadService {
	return &uploadService{
		db:       db,
		log:      baseLog.With("service", "UploadService"),
		pipeline: p,
		ctrl:     ctrl,
		obs:      obs,
		uploads:  uploadRepo,
		issues:   issueRepo,
		store:    store,
		now:      time.Now,
	}
}

func readingsOf(c pipeline.Created) []workflow.Reading {
	out := make([]workflow.Reading, 0, len(c.Academic)+len(c.Psychological))
	for _, o := range c.Academic {
		pct := o.Percentage
		out = append(out, workflow.Reading{Percentage: &pct, Subject: o.Subject})
	}
	for _, o := range c.Psychological {
		out = append(out, workflow.Reading{DASSStress: o.DASSStress, DASSDepression: o.DASSDepression})
	}
	return out
}

func (s *uploadService) Upload(ctx context.Context, req pipeline.Request) (*UploadResponse, error) {
	res, err := s.pipeline.Ingest(ctx, req)
	if err != nil {
		resp := &UploadResponse{Years: []string{}, Issues: []*types.ValidationIssue{}, Error: errs.Reason(err), Kind: errs.KindOf(err)}
		if res != nil {
			resp.Upload = res.Upload
		}
		return resp, err
	}
	resp := &UploadResponse{
		Success: true,
		Upload:  res.Upload,
		Created: CreatedCounts{
			Academic:      len(res.Created.Academic),
			Psychological: len(res.Created.Psychological),
			Physical:      len(res.Created.Physical),
		},
		Years:  res.Years,
		Issues: res.Issues,
	}
	if resp.Years == nil {
		resp.Years = []string{}
	}
	if resp.Issues == nil {
		resp.Issues = []*types.ValidationIssue{}
	}
	if res.Created.Count() == 0 {
		return resp, nil
	}

	out, err := s.ctrl.Refresh(ctx, recompute.UploadRefresh{
		StudentID: req.StudentID,
		Domains:   res.Created.Domains(),
		Years:     res.Years,
		Readings:  readingsOf(res.Created),
		Added:     res.Created.Counts(),
	})
	if err != nil {
		// The observations are committed; the next write or a recompute job
		// rebuilds the summaries.
		s.log.Error("refresh after upload failed", "upload_id", res.Upload.ID, "student_id", req.StudentID, "error", err)
		return resp, nil
	}
	resp.Updates = updatesOf(out)
	s.log.Info("upload completed",
		"upload_id", res.Upload.ID,
		"student_id", req.StudentID,
		"observations", res.Created.Count(),
		"years", res.Years,
	)
	return resp, nil
}

func (s *uploadService) Get(ctx context.Context, uploadID uuid.UUID) (*types.DataUpload, error) {
	u, err := s.uploads.GetByID(dbctx.Context{Ctx: ctx}, uploadID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.New(errs.KindNotFound, "upload not found", errs.ErrNotFound)
	}
	return u, nil
}

func (s *uploadService) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*types.DataUpload, error) {
	return s.uploads.ListByStudent(dbctx.Context{Ctx: ctx}, studentID)
}

func (s *uploadService) DeleteUpload(ctx context.Context, uploadID uuid.UUID) error {
	upload, err := s.Get(ctx, uploadID)
	if err != nil {
		return err
	}
	var detached, dismissed int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		for _, detach := range []func(dbctx.Context, uuid.UUID) (int64, error){
			s.obs.AcademicRepo().DetachUpload,
			s.obs.PsychologicalRepo().DetachUpload,
			s.obs.PhysicalRepo().DetachUpload,
		} {
			n, err := detach(dbc, uploadID)
			if err != nil {
				return err
			}
			detached += n
		}
		n, err := s.issues.DismissForUpload(dbc, uploadID, domainissues.ReasonSourceRemoved)
		if err != nil {
			return err
		}
		dismissed = n
		return s.uploads.Delete(dbc, uploadID)
	})
	if err != nil {
		return err
	}
	if s.store != nil && upload.StorageKey != "" {
		if err := s.store.Delete(ctx, upload.StorageKey); err != nil {
			s.log.Warn("upload bytes not removed", "upload_id", uploadID, "key", upload.StorageKey, "error", err)
		}
	}
	s.log.Info("upload deleted", "upload_id", uploadID, "student_id", upload.StudentID, "detached", detached, "issues_dismissed", dismissed)
	return nil
}

func (s *uploadService) ListIssues(ctx context.Context, f issues.Filter) ([]*types.ValidationIssue, error) {
	if f.StudentID == uuid.Nil && f.UploadID == nil && f.ObservationID == nil {
		return nil, errs.New(errs.KindInvalidArgument, "issue filter needs a student, upload or observation", errs.ErrInvalidArgument)
	}
	return s.issues.List(dbctx.Context{Ctx: ctx}, f)
}

func (s *uploadService) TransitionIssue(ctx context.Context, issueID uuid.UUID, to domainissues.Status, note string) (*types.ValidationIssue, error) {
	var out *types.ValidationIssue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		issue, err := s.issues.GetByID(dbc, issueID)
		if err != nil {
			return err
		}
		if issue == nil {
			return errs.New(errs.KindNotFound, "validation issue not found", errs.ErrNotFound)
		}
		if err := validation.Transition(issue, to, note, s.now()); err != nil {
			return err
		}
		if err := s.issues.UpdateFields(dbc, issue.ID, validation.TransitionUpdates(issue)); err != nil {
			return err
		}
		out = issue
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
