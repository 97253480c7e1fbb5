package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/edusight-backend/internal/analytics"
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	"github.com/yungbote/edusight-backend/internal/data/repos/summaries"
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/recommend"
)

// Response wraps a query result. Insufficient data is not an error for the
// caller: Success is false and Message explains what is missing.
type Response[T any] struct {
	Success bool      `json:"success"`
	Data    *T        `json:"data,omitempty"`
	Message string    `json:"message,omitempty"`
	Kind    errs.Kind `json:"kind,omitempty"`
}

type StudentOverview struct {
	Profile   *types.StudentProfile `json:"profile"`
	Summaries []*types.YearSummary  `json:"summaries"`
}

type QueryService interface {
	ComprehensiveAnalysis(ctx context.Context, studentID uuid.UUID) (*analytics.Comprehensive, error)
	Predict(ctx context.Context, studentID uuid.UUID, kind, timeframe string) (*Response[analytics.Prediction], error)
	Benchmarks(ctx context.Context, studentID uuid.UUID) (*Response[analytics.BenchmarkReport], error)
	Trends(ctx context.Context, studentID uuid.UUID) (*Response[analytics.TrendReport], error)
	Patterns(ctx context.Context, studentID uuid.UUID) (*Response[analytics.Patterns], error)
	Recommendations(ctx context.Context, studentID uuid.UUID) (*Response[recommend.Bundle], error)
	Overview(ctx context.Context, studentID uuid.UUID) (*StudentOverview, error)
}

type queryService struct {
	log       *logger.Logger
	analytics analytics.Service
	recommend recommend.Service
	profiles  students.StudentProfileRepo
	summaries summaries.YearSummaryRepo
}

func NewQueryService(
	baseLog *logger.Logger,
	a analytics.Service,
	r recommend.Service,
	profiles students.StudentProfileRepo,
	summaryRepo summaries.YearSummaryRepo,
) QueryService {
	return &queryService{
		log:       baseLog.With("service", "QueryService"),
		analytics: a,
		recommend: r,
		profiles:  profiles,
		summaries: summaryRepo,
	}
}

// wrap turns insufficient data into an unsuccessful response and passes
// every other error through.
func wrap[T any](v *T, err error) (*Response[T], error) {
	if err == nil {
		return &Response[T]{Success: true, Data: v}, nil
	}
	if errs.KindOf(err) == errs.KindInsufficientData {
		return &Response[T]{Success: false, Message: errs.Reason(err), Kind: errs.KindInsufficientData}, nil
	}
	return &Response[T]{Success: false, Message: errs.Reason(err), Kind: errs.KindOf(err)}, err
}

func (s *queryService) ComprehensiveAnalysis(ctx context.Context, studentID uuid.UUID) (*analytics.Comprehensive, error) {
	if studentID == uuid.Nil {
		return nil, errs.New(errs.KindInvalidArgument, "student id required", errs.ErrInvalidArgument)
	}
	return s.analytics.ComprehensiveAnalysis(ctx, studentID)
}

func (s *queryService) Predict(ctx context.Context, studentID uuid.UUID, kind, timeframe string) (*Response[analytics.Prediction], error) {
	v, err := s.analytics.Predict(ctx, studentID, kind, timeframe)
	return wrap(v, err)
}

func (s *queryService) Benchmarks(ctx context.Context, studentID uuid.UUID) (*Response[analytics.BenchmarkReport], error) {
	v, err := s.analytics.Benchmarks(ctx, studentID)
	return wrap(v, err)
}

func (s *queryService) Trends(ctx context.Context, studentID uuid.UUID) (*Response[analytics.TrendReport], error) {
	v, err := s.analytics.Trends(ctx, studentID)
	return wrap(v, err)
}

func (s *queryService) Patterns(ctx context.Context, studentID uuid.UUID) (*Response[analytics.Patterns], error) {
	v, err := s.analytics.Patterns(ctx, studentID)
	return wrap(v, err)
}

func (s *queryService) Recommendations(ctx context.Context, studentID uuid.UUID) (*Response[recommend.Bundle], error) {
	v, err := s.recommend.Recommend(ctx, studentID)
	return wrap(v, err)
}

func (s *queryService) Overview(ctx context.Context, studentID uuid.UUID) (*StudentOverview, error) {
	dbc := dbctx.Context{Ctx: ctx}
	p, err := s.profiles.GetByID(dbc, studentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errs.New(errs.KindNotFound, "student not found", errs.ErrNotFound)
	}
	sums, err := s.summaries.ListByStudent(dbc, studentID)
	if err != nil {
		return nil, err
	}
	if sums == nil {
		sums = []*types.YearSummary{}
	}
	return &StudentOverview{Profile: p, Summaries: sums}, nil
}
