package scorers

import (
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

type PhysicalScore struct {
	Score     *float64       `json:"score,omitempty"`
	Composite scoring.Result `json:"composite"`
	BMI       *float64       `json:"bmi,omitempty"`
	BMIScore  *float64       `json:"bmi_score,omitempty"`
	Sleep     scoring.Result `json:"sleep"`
	Age       *int           `json:"age,omitempty"`

	Latest *types.PhysicalObservation `json:"-"`
}

// ScorePhysical scores the latest physical observation. profile may be nil,
// in which case adult bands apply.
func ScorePhysical(o *types.PhysicalObservation, profile *types.StudentProfile) PhysicalScore {
	out := PhysicalScore{}
	if o == nil {
		return out
	}
	out.Latest = o
	if profile != nil {
		out.Age = profile.AgeAt(o.MeasurementDate)
	}

	out.BMI = o.BMI
	if out.BMI == nil && o.HeightCM != nil && o.WeightKG != nil {
		if b, ok := scoring.BMI(*o.HeightCM, *o.WeightKG); ok {
			out.BMI = &b
		}
	}
	if out.BMI != nil && *out.BMI > 0 {
		v := scoring.BMIScore(*out.BMI, out.Age, o.BMIPercentile)
		out.BMIScore = &v
	}
	out.Sleep = scoring.SleepScore(o.SleepHours, o.SleepQuality, out.Age)

	out.Composite = scoring.PhysicalComposite(scoring.PhysicalInputs{
		Cardio:         o.Cardio,
		Strength:       o.Strength,
		Flexibility:    o.Flexibility,
		Endurance:      o.Endurance,
		SleepHours:     o.SleepHours,
		SleepQuality:   o.SleepQuality,
		NutritionScore: o.NutritionScore,
		BMI:            out.BMI,
		BMIPercentile:  o.BMIPercentile,
		Age:            out.Age,
	})
	out.Score = out.Composite.Ptr()
	return out
}

// Apply writes the derived scores onto the observation. The stored bmi is
// left untouched; derivation belongs to ingestion and manual entry builders.
func (s PhysicalScore) Apply(o *types.PhysicalObservation) {
	o.BMIScore = s.BMIScore
	o.SleepScore = s.Sleep.Ptr()
	o.CompositeScore = s.Score
}
