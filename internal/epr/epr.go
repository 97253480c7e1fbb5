// Package epr combines domain scores into the Edusight Prism Rating and its
// performance band. It is pure and never touches storage.
package epr

import (
	"fmt"

	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

type Band string

const (
	BandAtRisk          Band = "At-Risk"
	BandNeedsSupport    Band = "Needs Support"
	BandHealthyProgress Band = "Healthy Progress"
	BandThriving        Band = "Thriving"
)

// Rank orders bands from At-Risk (0) to Thriving (3); unknown bands rank -1.
func (b Band) Rank() int {
	switch b {
	case BandAtRisk:
		return 0
	case BandNeedsSupport:
		return 1
	case BandHealthyProgress:
		return 2
	case BandThriving:
		return 3
	}
	return -1
}

type Weights struct {
	Academic      float64 `yaml:"academic" json:"academic"`
	Psychological float64 `yaml:"psychological" json:"psychological"`
	Physical      float64 `yaml:"physical" json:"physical"`
}

// Boundaries are the lower bounds of the upper three bands.
type Boundaries struct {
	Thriving     float64 `yaml:"thriving" json:"thriving"`
	Healthy      float64 `yaml:"healthy" json:"healthy"`
	NeedsSupport float64 `yaml:"needs_support" json:"needs_support"`
}

func DefaultWeights() Weights {
	return Weights{Academic: 0.40, Psychological: 0.30, Physical: 0.30}
}

func DefaultBoundaries() Boundaries {
	return Boundaries{Thriving: 85, Healthy: 70, NeedsSupport: 50}
}

// Validate rejects boundaries that are out of range or not strictly descending.
func (b Boundaries) Validate() error {
	if b.NeedsSupport <= 0 || b.Thriving > 100 {
		return errs.New(errs.KindInvalidArgument, "band boundaries out of range", errs.ErrInvalidBands)
	}
	if !(b.Thriving > b.Healthy && b.Healthy > b.NeedsSupport) {
		return errs.New(errs.KindInvalidArgument,
			fmt.Sprintf("band boundaries must descend: thriving=%v healthy=%v needs_support=%v", b.Thriving, b.Healthy, b.NeedsSupport),
			errs.ErrInvalidBands)
	}
	return nil
}

func (w Weights) Validate() error {
	if w.Academic < 0 || w.Psychological < 0 || w.Physical < 0 {
		return fmt.Errorf("epr weights must be non-negative: %w", errs.ErrInvalidArgument)
	}
	if w.Academic+w.Psychological+w.Physical == 0 {
		return fmt.Errorf("epr weights must not all be zero: %w", errs.ErrInvalidArgument)
	}
	return nil
}

type Composer struct {
	weights    Weights
	boundaries Boundaries
}

// New validates the configuration; an invalid band table is fatal to callers.
func New(w Weights, b Boundaries) (*Composer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &Composer{weights: w, boundaries: b}, nil
}

// Default uses the standard 0.40/0.30/0.30 weights and 85/70/50 boundaries.
func Default() *Composer {
	return &Composer{weights: DefaultWeights(), boundaries: DefaultBoundaries()}
}

type Rating struct {
	Score   float64              `json:"score"`
	Band    Band                 `json:"band"`
	Domains scoring.DomainScores `json:"domains"`
	Weights map[string]float64   `json:"weights_used"`
}

// Compose returns nil when no domain score is present.
func (c *Composer) Compose(scores scoring.DomainScores) *Rating {
	var num, den float64
	used := map[string]float64{}
	add := func(name string, s *float64, w float64) {
		if s == nil || w <= 0 {
			return
		}
		num += w * scoring.Clamp(*s, 0, 100)
		den += w
		used[name] = w
	}
	add("academic", scores.Academic, c.weights.Academic)
	add("psychological", scores.Psychological, c.weights.Psychological)
	add("physical", scores.Physical, c.weights.Physical)
	if den == 0 {
		return nil
	}
	score := num / den
	return &Rating{Score: score, Band: c.Band(score), Domains: scores, Weights: used}
}

func (c *Composer) Band(score float64) Band {
	switch {
	case score >= c.boundaries.Thriving:
		return BandThriving
	case score >= c.boundaries.Healthy:
		return BandHealthyProgress
	case score >= c.boundaries.NeedsSupport:
		return BandNeedsSupport
	default:
		return BandAtRisk
	}
}

func (c *Composer) Weights() Weights { return c.weights }
