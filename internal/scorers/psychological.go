package scorers

import (
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

// ScaleTagPercent marks custom scores already expressed on 0-100.
const ScaleTagPercent = "0-100"

type PsychologicalScore struct {
	Score    *float64          `json:"score,omitempty"`
	SDQ      scoring.Result    `json:"sdq"`
	DASS     scoring.Result    `json:"dass"`
	PERMA    scoring.Result    `json:"perma"`
	Custom   *float64          `json:"custom,omitempty"`
	Severity map[string]string `json:"dass_severity"`

	Latest *types.PsychologicalObservation `json:"-"`
}

// ScorePsychological scores a single observation, normally the latest in the
// window. A nil observation yields an absent score.
func ScorePsychological(o *types.PsychologicalObservation) PsychologicalScore {
	out := PsychologicalScore{Severity: map[string]string{}}
	if o == nil {
		return out
	}
	out.Latest = o
	out.SDQ = scoring.SDQComposite(scoring.SDQInputs{
		Emotional:     o.SDQEmotional,
		Conduct:       o.SDQConduct,
		Hyperactivity: o.SDQHyperactivity,
		Peer:          o.SDQPeer,
		Prosocial:     o.SDQProsocial,
	})
	out.DASS = scoring.DASSComposite(scoring.DASSInputs{
		Depression: o.DASSDepression,
		Anxiety:    o.DASSAnxiety,
		Stress:     o.DASSStress,
	})
	out.PERMA = scoring.PERMAComposite(scoring.PERMAInputs{
		PositiveEmotion: o.PERMAPositiveEmotion,
		Engagement:      o.PERMAEngagement,
		Relationships:   o.PERMARelationships,
		Meaning:         o.PERMAMeaning,
		Accomplishment:  o.PERMAAccomplishment,
	})
	if o.DASSDepression != nil {
		out.Severity["depression"] = scoring.DASSDepressionSeverity(*o.DASSDepression)
	}
	if o.DASSAnxiety != nil {
		out.Severity["anxiety"] = scoring.DASSAnxietySeverity(*o.DASSAnxiety)
	}
	if o.DASSStress != nil {
		out.Severity["stress"] = scoring.DASSStressSeverity(*o.DASSStress)
	}
	if o.ScaleTag == ScaleTagPercent {
		var vals []float64
		for _, v := range o.CustomScores.Data() {
			vals = append(vals, scoring.Clamp(v, 0, 100))
		}
		out.Custom = meanPtr(vals)
	}

	var parts []float64
	for _, r := range []scoring.Result{out.SDQ, out.DASS, out.PERMA} {
		if r.Present() {
			parts = append(parts, r.Score)
		}
	}
	if out.Custom != nil {
		parts = append(parts, *out.Custom)
	}
	out.Score = meanPtr(parts)
	return out
}

// Apply writes the derived composites onto the observation.
func (s PsychologicalScore) Apply(o *types.PsychologicalObservation) {
	o.SDQScore = s.SDQ.Ptr()
	o.DASSScore = s.DASS.Ptr()
	o.PERMAScore = s.PERMA.Ptr()
	o.CompositeScore = s.Score
}
