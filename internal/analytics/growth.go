package analytics

import (
	"fmt"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

// MinGrowthPoints is the fewest dated measurements a projection needs.
const MinGrowthPoints = 2

// Projection extends a measurement linearly by months.
type Projection struct {
	Current   float64   `json:"current"`
	PerMonth  float64   `json:"per_month"`
	Projected float64   `json:"projected"`
	Points    int       `json:"points"`
	Path      []float64 `json:"path"`
}

type GrowthForecast struct {
	Periods int         `json:"periods"`
	Height  *Projection `json:"height_cm,omitempty"`
	Weight  *Projection `json:"weight_kg,omitempty"`
	BMI     *float64    `json:"projected_bmi,omitempty"`
}

func project(ms []Measure, periods int) *Projection {
	if len(ms) < MinGrowthPoints {
		return nil
	}
	xs, ys := measureAxes(ms)
	a, b := scoring.Line(xs, ys)
	lastX := xs[len(xs)-1]
	p := &Projection{
		Current:  ms[len(ms)-1].Value,
		PerMonth: scoring.Round(b, 4),
		Points:   len(ms),
		Path:     make([]float64, 0, periods),
	}
	for k := 1; k <= periods; k++ {
		v := a + b*(lastX+float64(k))
		if v < 0 {
			v = 0
		}
		p.Path = append(p.Path, scoring.Round(v, 2))
	}
	p.Projected = p.Path[len(p.Path)-1]
	return p
}

// ForecastGrowth projects height and weight periods months ahead. Either
// series may be absent; both absent is insufficient data.
func ForecastGrowth(obs []*types.PhysicalObservation, periods int) (*GrowthForecast, error) {
	if periods <= 0 {
		return nil, errs.New(errs.KindInvalidArgument, "periods must be positive", errs.ErrInvalidArgument)
	}
	g := growthOf(obs)
	out := &GrowthForecast{Periods: periods, Height: project(g.Heights, periods), Weight: project(g.Weights, periods)}
	if out.Height == nil && out.Weight == nil {
		return nil, errs.New(errs.KindInsufficientData,
			fmt.Sprintf("growth forecast needs at least %d dated height or weight measurements", MinGrowthPoints),
			errs.ErrInsufficientData)
	}
	if out.Height != nil && out.Weight != nil {
		if bmi, ok := scoring.BMI(out.Height.Projected, out.Weight.Projected); ok {
			bmi = scoring.Round(bmi, 2)
			out.BMI = &bmi
		}
	}
	return out, nil
}
