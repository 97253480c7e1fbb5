package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/scorers"
)

type Service interface {
	// Recommend scores the student's whole history and applies the rules.
	Recommend(ctx context.Context, studentID uuid.UUID) (*Bundle, error)
}

type service struct {
	log      *logger.Logger
	scorer   scorers.Scorer
	profiles students.StudentProfileRepo
	composer *epr.Composer
	clock    func() time.Time
}

func NewService(baseLog *logger.Logger, scorer scorers.Scorer, profiles students.StudentProfileRepo, composer *epr.Composer) Service {
	if composer == nil {
		composer = epr.Default()
	}
	return &service{
		log:      baseLog.With("component", "RecommendationService"),
		scorer:   scorer,
		profiles: profiles,
		composer: composer,
		clock:    time.Now,
	}
}

func (s *service) Recommend(ctx context.Context, studentID uuid.UUID) (*Bundle, error) {
	dbc := dbctx.Context{Ctx: ctx}
	scores, err := s.scorer.All(dbc, studentID, "")
	if err != nil {
		return nil, err
	}
	ds := scores.Domains()
	if ds.Academic == nil && ds.Psychological == nil && ds.Physical == nil {
		return nil, errs.New(errs.KindInsufficientData, "no observations to recommend from", errs.ErrInsufficientData)
	}
	profile, err := s.profiles.GetByID(dbc, studentID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	in := Input{Scores: scores, Rating: s.composer.Compose(ds)}
	if profile != nil {
		in.Age = profile.AgeAt(now)
	}
	b := Build(in)
	b.GeneratedAt = now.UTC()
	s.log.Debug("recommendations built", "student_id", studentID, "priority", b.InterventionPriority,
		"immediate", len(b.ImmediateActions))
	return b, nil
}
