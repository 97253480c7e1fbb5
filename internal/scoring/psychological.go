package scoring

import "math"

type SDQInputs struct {
	Emotional     *float64
	Conduct       *float64
	Hyperactivity *float64
	Peer          *float64
	Prosocial     *float64
}

// SDQComposite bands total difficulties and prosocial behaviour separately and
// averages whichever bands could be derived.
func SDQComposite(in SDQInputs) Result {
	var parts []component
	var total float64
	have := false
	for _, v := range []*float64{in.Emotional, in.Conduct, in.Hyperactivity, in.Peer} {
		if v == nil {
			continue
		}
		total += Clamp(*v, 0, 10)
		have = true
	}
	if have {
		parts = append(parts, component{name: "total_difficulties", value: SDQDifficultiesBand(total)})
	}
	if in.Prosocial != nil {
		parts = append(parts, component{name: "prosocial", value: SDQProsocialBand(Clamp(*in.Prosocial, 0, 10))})
	}
	return mean(parts)
}

// SDQDifficultiesBand maps a total difficulties score (0-40, higher is worse).
func SDQDifficultiesBand(total float64) float64 {
	switch {
	case total <= 13:
		return 100
	case total <= 16:
		return 75
	default:
		return math.Max(0, 75-3*(total-16))
	}
}

// SDQProsocialBand maps the prosocial subscale (0-10, higher is better).
func SDQProsocialBand(x float64) float64 {
	switch {
	case x >= 6:
		return 100
	case x >= 5:
		return 75
	default:
		return math.Max(0, 12.5*x)
	}
}

type DASSInputs struct {
	Depression *float64
	Anxiety    *float64
	Stress     *float64
}

// dassCutoffs are the upper bounds of the normal, mild, moderate and severe
// bands; anything above the last is extremely severe.
type dassCutoffs [4]float64

var (
	depressionCutoffs = dassCutoffs{9, 13, 20, 27}
	anxietyCutoffs    = dassCutoffs{7, 9, 14, 19}
	stressCutoffs     = dassCutoffs{14, 18, 25, 33}
)

var dassBandScores = [4]float64{100, 80, 60, 40}

func (c dassCutoffs) score(x float64) float64 {
	x = Clamp(x, 0, 42)
	for i, hi := range c {
		if x <= hi {
			return dassBandScores[i]
		}
	}
	// Extremely severe starts one point above the severe bound.
	start := c[3] + 1
	return Clamp(40-(x-start), 0, 40)
}

func DASSDepressionScore(x float64) float64 { return depressionCutoffs.score(x) }
func DASSAnxietyScore(x float64) float64    { return anxietyCutoffs.score(x) }
func DASSStressScore(x float64) float64     { return stressCutoffs.score(x) }

// DASSComposite rescales each subscale so that higher means less distress and
// averages the supplied ones.
func DASSComposite(in DASSInputs) Result {
	var parts []component
	if in.Depression != nil {
		parts = append(parts, component{name: "depression", value: DASSDepressionScore(*in.Depression)})
	}
	if in.Anxiety != nil {
		parts = append(parts, component{name: "anxiety", value: DASSAnxietyScore(*in.Anxiety)})
	}
	if in.Stress != nil {
		parts = append(parts, component{name: "stress", value: DASSStressScore(*in.Stress)})
	}
	return mean(parts)
}

// DASS severity labels, mildest first.
const (
	SeverityNormal          = "normal"
	SeverityMild            = "mild"
	SeverityModerate        = "moderate"
	SeveritySevere          = "severe"
	SeverityExtremelySevere = "extremely_severe"
)

var dassSeverityLabels = [5]string{SeverityNormal, SeverityMild, SeverityModerate, SeveritySevere, SeverityExtremelySevere}

func (c dassCutoffs) severity(x float64) string {
	for i, hi := range c {
		if x <= hi {
			return dassSeverityLabels[i]
		}
	}
	return dassSeverityLabels[4]
}

func DASSDepressionSeverity(x float64) string { return depressionCutoffs.severity(x) }
func DASSAnxietySeverity(x float64) string    { return anxietyCutoffs.severity(x) }
func DASSStressSeverity(x float64) string     { return stressCutoffs.severity(x) }

type PERMAInputs struct {
	PositiveEmotion *float64
	Engagement      *float64
	Relationships   *float64
	Meaning         *float64
	Accomplishment  *float64
}

// PERMAElementScore rescales a 1-10 element onto 0-100.
func PERMAElementScore(x float64) float64 {
	return (Clamp(x, 1, 10) - 1) * 100 / 9
}

func PERMAComposite(in PERMAInputs) Result {
	var parts []component
	add := func(name string, v *float64) {
		if v != nil {
			parts = append(parts, component{name: name, value: PERMAElementScore(*v)})
		}
	}
	add("positive_emotion", in.PositiveEmotion)
	add("engagement", in.Engagement)
	add("relationships", in.Relationships)
	add("meaning", in.Meaning)
	add("accomplishment", in.Accomplishment)
	return mean(parts)
}
