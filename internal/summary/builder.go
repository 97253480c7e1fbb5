// Package summary rolls a student's observations up into one derived record
// per academic year.
package summary

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	"github.com/yungbote/edusight-backend/internal/data/repos/summaries"
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/scorers"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

// Result is a computed summary together with the inputs it was derived from.
type Result struct {
	Summary *types.YearSummary
	Scores  scorers.Scores
	Rating  *epr.Rating
}

type Builder interface {
	// Compute derives the summary for (studentID, academicYear) without writing.
	Compute(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*Result, error)
	// Rebuild computes and upserts the summary. A year left with no
	// observations has its summary removed and yields a nil result.
	Rebuild(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*Result, error)
}

type builder struct {
	log      *logger.Logger
	obs      observations.Repository
	scorer   scorers.Scorer
	repo     summaries.YearSummaryRepo
	composer *epr.Composer
	now      func() time.Time
}

func NewBuilder(
	baseLog *logger.Logger,
	obs observations.Repository,
	scorer scorers.Scorer,
	repo summaries.YearSummaryRepo,
	composer *epr.Composer,
) Builder {
	if composer == nil {
		composer = epr.Default()
	}
	return &builder{
		log:      baseLog.With("component", "YearSummaryBuilder"),
		obs:      obs,
		scorer:   scorer,
		repo:     repo,
		composer: composer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (b *builder) Compute(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*Result, error) {
	if academicYear == "" {
		return nil, fmt.Errorf("academic year required")
	}
	counts, err := b.obs.Counts(dbc, studentID, academicYear)
	if err != nil {
		return nil, fmt.Errorf("count observations: %w", err)
	}
	scores, err := b.scorer.All(dbc, studentID, academicYear)
	if err != nil {
		return nil, err
	}
	domains := roundScores(scores.Domains())
	rating := b.composer.Compose(domains)

	s := &types.YearSummary{
		StudentID:               studentID,
		AcademicYear:            academicYear,
		AcademicCount:           counts.Academic,
		PsychologicalCount:      counts.Psychological,
		PhysicalCount:           counts.Physical,
		OverallAcademicAverage:  domains.Academic,
		EmotionalWellbeingScore: domains.Psychological,
		FitnessLevel:            domains.Physical,
		LastUpdated:             b.now(),
	}
	var overall *float64
	if rating != nil {
		v := scoring.Round(rating.Score, 2)
		overall = &v
		s.AnnualEPRScore = overall
		s.EPRPerformanceBand = string(rating.Band)
	}
	n := narrate(scores, scoring.PerformanceInsights(domains, overall))
	s.ImprovementTrends = datatypes.JSONSlice[string](n.trends)
	s.AreasOfConcern = datatypes.JSONSlice[string](n.concerns)
	s.Recommendations = datatypes.JSONSlice[string](n.recommendations)

	return &Result{Summary: s, Scores: scores, Rating: rating}, nil
}

func (b *builder) Rebuild(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*Result, error) {
	res, err := b.Compute(dbc, studentID, academicYear)
	if err != nil {
		return nil, err
	}
	s := res.Summary
	if s.AcademicCount+s.PsychologicalCount+s.PhysicalCount == 0 {
		if err := b.repo.Delete(dbc, studentID, academicYear); err != nil {
			return nil, fmt.Errorf("delete empty year summary: %w", err)
		}
		b.log.Debug("year summary removed", "student_id", studentID, "academic_year", academicYear)
		return nil, nil
	}
	existing, err := b.repo.Get(dbc, studentID, academicYear)
	if err != nil {
		return nil, fmt.Errorf("load year summary: %w", err)
	}
	if err := b.repo.Upsert(dbc, s); err != nil {
		return nil, fmt.Errorf("upsert year summary: %w", err)
	}
	// The conflicting row keeps its identity.
	if existing != nil {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	}
	b.log.Debug("year summary rebuilt",
		"student_id", studentID,
		"academic_year", academicYear,
		"epr", s.AnnualEPRScore,
		"band", s.EPRPerformanceBand,
	)
	return res, nil
}

func roundScores(d scoring.DomainScores) scoring.DomainScores {
	r := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := scoring.Round(*p, 2)
		return &v
	}
	return scoring.DomainScores{Academic: r(d.Academic), Psychological: r(d.Psychological), Physical: r(d.Physical)}
}

type narrative struct {
	trends          []string
	concerns        []string
	recommendations []string
}

func narrate(scores scorers.Scores, in scoring.Insights) narrative {
	n := narrative{trends: []string{}, concerns: []string{}, recommendations: []string{}}

	n.trends = append(n.trends, in.Strengths...)
	ac := scores.Academic
	if ac.Count > 1 {
		switch {
		case ac.ImprovementRate > 0.5:
			n.trends = append(n.trends, fmt.Sprintf("Academic results improving by %.1f points per month", ac.ImprovementRate))
		case ac.ImprovementRate < -0.5:
			n.concerns = append(n.concerns, fmt.Sprintf("Academic results declining by %.1f points per month", -ac.ImprovementRate))
		default:
			n.trends = append(n.trends, "Academic results holding steady")
		}
	}
	for _, subj := range ac.Strengths {
		n.trends = append(n.trends, fmt.Sprintf("Strong results in %s", subj))
	}
	for _, subj := range ac.Weaknesses {
		n.concerns = append(n.concerns, fmt.Sprintf("Below expectations in %s", subj))
	}

	n.concerns = append(n.concerns, in.Improvements...)
	n.concerns = append(n.concerns, in.ImmediateActions...)

	sev := scores.Psychological.Severity
	keys := make([]string, 0, len(sev))
	for k := range sev {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if sev[k] == scoring.SeveritySevere || sev[k] == scoring.SeverityExtremelySevere {
			n.concerns = append(n.concerns, fmt.Sprintf("DASS-21 %s in the %s range", k, sev[k]))
		}
	}

	for _, subj := range ac.Weaknesses {
		n.recommendations = append(n.recommendations, fmt.Sprintf("Arrange targeted support in %s", subj))
	}
	if len(in.ImmediateActions) > 0 {
		n.recommendations = append(n.recommendations, "Schedule an intervention review for the flagged domains")
	}
	n.recommendations = append(n.recommendations, in.ComprehensiveSupport...)
	return n
}
