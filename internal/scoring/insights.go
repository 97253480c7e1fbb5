package scoring

import "fmt"

// Insight thresholds shared with the recommendation rules.
const (
	StrengthThreshold        = 85.0
	ImprovementThreshold     = 70.0
	ImmediateActionThreshold = 50.0
)

type DomainScores struct {
	Academic      *float64 `json:"academic,omitempty"`
	Psychological *float64 `json:"psychological,omitempty"`
	Physical      *float64 `json:"physical,omitempty"`
}

func (d DomainScores) Each(fn func(name string, score float64)) {
	if d.Academic != nil {
		fn("academic", *d.Academic)
	}
	if d.Psychological != nil {
		fn("psychological", *d.Psychological)
	}
	if d.Physical != nil {
		fn("physical", *d.Physical)
	}
}

type Insights struct {
	Strengths            []string `json:"strengths"`
	Improvements         []string `json:"improvements"`
	ImmediateActions     []string `json:"immediate_actions"`
	ComprehensiveSupport []string `json:"comprehensive_support"`
}

var domainLabels = map[string]string{
	"academic":      "Academic performance",
	"psychological": "Emotional wellbeing",
	"physical":      "Physical health",
}

// PerformanceInsights applies the insight rule table to the domain scores and
// the overall EPR (nil when not computable).
func PerformanceInsights(scores DomainScores, overall *float64) Insights {
	out := Insights{
		Strengths:            []string{},
		Improvements:         []string{},
		ImmediateActions:     []string{},
		ComprehensiveSupport: []string{},
	}
	scores.Each(func(name string, s float64) {
		label := domainLabels[name]
		if s >= StrengthThreshold {
			out.Strengths = append(out.Strengths, fmt.Sprintf("%s is a strength (%.1f)", label, s))
		}
		if s < ImprovementThreshold {
			out.Improvements = append(out.Improvements, fmt.Sprintf("%s has room for improvement (%.1f)", label, s))
		}
		if s < ImmediateActionThreshold {
			out.ImmediateActions = append(out.ImmediateActions, fmt.Sprintf("%s needs immediate attention (%.1f)", label, s))
		}
	})
	if overall != nil && *overall < ImmediateActionThreshold {
		out.ComprehensiveSupport = append(out.ComprehensiveSupport,
			fmt.Sprintf("Overall rating %.1f calls for a comprehensive support plan across all domains", *overall))
	}
	return out
}
