// Package scorers turns a student's observations into domain scores by
// calling the scoring kernel. Scorers read through the observation
// repository and fail soft: a domain with no input has an absent score.
package scorers

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

// Scores bundles the three domain results for one window.
type Scores struct {
	Academic      AcademicScore      `json:"academic"`
	Psychological PsychologicalScore `json:"psychological"`
	Physical      PhysicalScore      `json:"physical"`
}

func (s Scores) Domains() scoring.DomainScores {
	return scoring.DomainScores{
		Academic:      s.Academic.Score,
		Psychological: s.Psychological.Score,
		Physical:      s.Physical.Score,
	}
}

type Scorer interface {
	Academic(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (AcademicScore, error)
	Psychological(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (PsychologicalScore, error)
	Physical(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (PhysicalScore, error)
	All(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (Scores, error)
	// Refresh scores domain for the window and writes derived composites onto
	// the latest observation. Academic observations carry no composite.
	Refresh(dbc dbctx.Context, studentID uuid.UUID, domain types.Domain, academicYear string) error
}

type scorer struct {
	log      *logger.Logger
	obs      observations.Repository
	profiles students.StudentProfileRepo
}

func NewScorer(baseLog *logger.Logger, obs observations.Repository, profiles students.StudentProfileRepo) Scorer {
	return &scorer{
		log:      baseLog.With("component", "DomainScorer"),
		obs:      obs,
		profiles: profiles,
	}
}

func (s *scorer) Academic(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (AcademicScore, error) {
	rows, err := s.obs.Academic(dbc, studentID, academicYear)
	if err != nil {
		return AcademicScore{}, fmt.Errorf("load academic observations: %w", err)
	}
	return ScoreAcademic(rows), nil
}

func (s *scorer) Psychological(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (PsychologicalScore, error) {
	latest, err := s.obs.LatestPsychological(dbc, studentID, academicYear)
	if err != nil {
		return PsychologicalScore{}, fmt.Errorf("load psychological observation: %w", err)
	}
	return ScorePsychological(latest), nil
}

func (s *scorer) Physical(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (PhysicalScore, error) {
	latest, err := s.obs.LatestPhysical(dbc, studentID, academicYear)
	if err != nil {
		return PhysicalScore{}, fmt.Errorf("load physical observation: %w", err)
	}
	if latest == nil {
		return PhysicalScore{}, nil
	}
	profile, err := s.profiles.GetByID(dbc, studentID)
	if err != nil {
		return PhysicalScore{}, fmt.Errorf("load student profile: %w", err)
	}
	return ScorePhysical(latest, profile), nil
}

func (s *scorer) All(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (Scores, error) {
	var out Scores
	var err error
	if out.Academic, err = s.Academic(dbc, studentID, academicYear); err != nil {
		return out, err
	}
	if out.Psychological, err = s.Psychological(dbc, studentID, academicYear); err != nil {
		return out, err
	}
	if out.Physical, err = s.Physical(dbc, studentID, academicYear); err != nil {
		return out, err
	}
	return out, nil
}

func (s *scorer) Refresh(dbc dbctx.Context, studentID uuid.UUID, domain types.Domain, academicYear string) error {
	switch domain {
	case types.DomainPsychological:
		res, err := s.Psychological(dbc, studentID, academicYear)
		if err != nil || res.Latest == nil {
			return err
		}
		res.Apply(res.Latest)
		if err := s.obs.PsychologicalRepo().Save(dbc, res.Latest); err != nil {
			return fmt.Errorf("write psychological composites: %w", err)
		}
		s.log.Debug("psychological composites written", "student_id", studentID, "observation_id", res.Latest.ID)
	case types.DomainPhysical:
		res, err := s.Physical(dbc, studentID, academicYear)
		if err != nil || res.Latest == nil {
			return err
		}
		res.Apply(res.Latest)
		if err := s.obs.PhysicalRepo().Save(dbc, res.Latest); err != nil {
			return fmt.Errorf("write physical composites: %w", err)
		}
		s.log.Debug("physical composites written", "student_id", studentID, "observation_id", res.Latest.ID)
	}
	return nil
}
