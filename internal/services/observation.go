// Package services is the caller-facing surface of the engine: observation
// writes, upload handling, analytics queries and background jobs. Results are
// plain structs ready for any transport to encode.
package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/notify"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/recompute"
	"github.com/yungbote/edusight-backend/internal/validation"
)

// FieldAcademicYear may ride along with the entry fields to pin the year.
const FieldAcademicYear = "academic_year"

// Updates is what a successful write changed.
type Updates struct {
	Domain            types.Domain             `json:"domain"`
	Years             []string                 `json:"years"`
	EPRChanges        []recompute.EPRChange    `json:"epr_changes"`
	Notifications     []notify.Notification    `json:"notifications"`
	Issues            []*types.ValidationIssue `json:"issues,omitempty"`
	CompletionPercent int                      `json:"completion_percent"`
}

// WriteResponse is never nil. A failed write carries its reason and kind.
type WriteResponse struct {
	Success bool       `json:"success"`
	EntryID *uuid.UUID `json:"entry_id,omitempty"`
	Updates *Updates   `json:"updates,omitempty"`
	Error   string     `json:"error,omitempty"`
	Kind    errs.Kind  `json:"kind,omitempty"`
}

type BulkResponse struct {
	Success bool                 `json:"success"`
	Applied int                  `json:"applied"`
	Items   []recompute.BulkItem `json:"items"`
	Updates *Updates             `json:"updates,omitempty"`
	Error   string               `json:"error,omitempty"`
	Kind    errs.Kind            `json:"kind,omitempty"`
}

type ObservationService interface {
	// Mutate creates the entry when entryID is nil and updates it otherwise.
	Mutate(ctx context.Context, studentID uuid.UUID, entryKind string, entryID *uuid.UUID, fields map[string]any) (*WriteResponse, error)
	Delete(ctx context.Context, studentID uuid.UUID, entryKind string, entryID uuid.UUID) (*WriteResponse, error)
	// Bulk creates every entry and rebuilds once at the end.
	Bulk(ctx context.Context, studentID uuid.UUID, entryKind string, entries []map[string]any) (*BulkResponse, error)
	// Submit queues the write behind the student's earlier ones and returns
	// at once.
	Submit(studentID uuid.UUID, entryKind string, entryID *uuid.UUID, fields map[string]any) (<-chan *WriteResponse, error)
}

type observationService struct {
	log        *logger.Logger
	ctrl       recompute.Controller
	dispatcher *recompute.Dispatcher
}

func NewObservationService(baseLog *logger.Logger, ctrl recompute.Controller, dispatcher *recompute.Dispatcher) ObservationService {
	return &observationService{
		log:        baseLog.With("service", "ObservationService"),
		ctrl:       ctrl,
		dispatcher: dispatcher,
	}
}

func parseKind(kind string) (types.Domain, error) {
	d := types.Domain(strings.ToLower(strings.TrimSpace(kind)))
	if !d.Valid() || d == types.DomainGeneric {
		return "", errs.New(errs.KindInvalidArgument, "unknown entry kind "+kind, errs.ErrInvalidArgument)
	}
	return d, nil
}

func mutationFor(studentID uuid.UUID, d types.Domain, entryID *uuid.UUID, fields map[string]any) recompute.Mutation {
	raw := validation.Stringify(fields)
	year := strings.TrimSpace(raw[FieldAcademicYear])
	delete(raw, FieldAcademicYear)
	return recompute.Mutation{
		StudentID:    studentID,
		Domain:       d,
		EntryID:      entryID,
		AcademicYear: year,
		Fields:       raw,
	}
}

func failed(err error) *WriteResponse {
	return &WriteResponse{Success: false, Error: errs.Reason(err), Kind: errs.KindOf(err)}
}

func updatesOf(out *recompute.Outcome) *Updates {
	if out == nil {
		return nil
	}
	u := &Updates{
		Domain:            out.Domain,
		Years:             out.Years,
		EPRChanges:        out.EPRChanges,
		Notifications:     out.Notifications,
		Issues:            out.Issues,
		CompletionPercent: out.CompletionPercent,
	}
	if u.Years == nil {
		u.Years = []string{}
	}
	if u.EPRChanges == nil {
		u.EPRChanges = []recompute.EPRChange{}
	}
	if u.Notifications == nil {
		u.Notifications = []notify.Notification{}
	}
	return u
}

func respond(out *recompute.Outcome) *WriteResponse {
	return &WriteResponse{Success: true, EntryID: out.EntryID, Updates: updatesOf(out)}
}

func (s *observationService) Mutate(ctx context.Context, studentID uuid.UUID, entryKind string, entryID *uuid.UUID, fields map[string]any) (*WriteResponse, error) {
	d, err := parseKind(entryKind)
	if err != nil {
		return failed(err), err
	}
	out, err := s.ctrl.Mutate(ctx, mutationFor(studentID, d, entryID, fields))
	if err != nil {
		s.log.Warn("mutation rejected", "student_id", studentID, "domain", d, "error", err)
		return failed(err), err
	}
	return respond(out), nil
}

func (s *observationService) Delete(ctx context.Context, studentID uuid.UUID, entryKind string, entryID uuid.UUID) (*WriteResponse, error) {
	d, err := parseKind(entryKind)
	if err != nil {
		return failed(err), err
	}
	out, err := s.ctrl.Delete(ctx, studentID, d, entryID)
	if err != nil {
		s.log.Warn("delete rejected", "student_id", studentID, "domain", d, "entry_id", entryID, "error", err)
		return failed(err), err
	}
	return respond(out), nil
}

func (s *observationService) Bulk(ctx context.Context, studentID uuid.UUID, entryKind string, entries []map[string]any) (*BulkResponse, error) {
	d, err := parseKind(entryKind)
	if err != nil {
		return &BulkResponse{Error: errs.Reason(err), Kind: errs.KindOf(err)}, err
	}
	ms := make([]recompute.Mutation, 0, len(entries))
	for _, f := range entries {
		ms = append(ms, mutationFor(studentID, d, nil, f))
	}
	res, err := s.ctrl.Bulk(ctx, studentID, ms)
	if err != nil {
		return &BulkResponse{Error: errs.Reason(err), Kind: errs.KindOf(err)}, err
	}
	u := updatesOf(res.Outcome)
	if u != nil {
		u.Domain = d
	}
	return &BulkResponse{
		Success: res.Applied > 0,
		Applied: res.Applied,
		Items:   res.Items,
		Updates: u,
	}, nil
}

func (s *observationService) Submit(studentID uuid.UUID, entryKind string, entryID *uuid.UUID, fields map[string]any) (<-chan *WriteResponse, error) {
	d, err := parseKind(entryKind)
	if err != nil {
		return nil, err
	}
	if s.dispatcher == nil {
		return nil, errs.New(errs.KindInternal, "async writes are not enabled", recompute.ErrDispatcherClosed)
	}
	results := s.dispatcher.Submit(mutationFor(studentID, d, entryID, fields))
	out := make(chan *WriteResponse, 1)
	go func() {
		r := <-results
		if r.Err != nil {
			out <- failed(r.Err)
			return
		}
		out <- respond(r.Outcome)
	}()
	return out, nil
}
