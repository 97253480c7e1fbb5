package scoring

import "math"

// Breakdown maps a component name to its 0-100 contribution.
type Breakdown map[string]float64

type Result struct {
	Score     float64   `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// Present reports whether any input contributed to the score.
func (r Result) Present() bool { return len(r.Breakdown) > 0 }

// Ptr returns the score, or nil when no input contributed.
func (r Result) Ptr() *float64 {
	if !r.Present() {
		return nil
	}
	s := r.Score
	return &s
}

type component struct {
	name   string
	value  float64
	weight float64
}

// weightedMean averages supplied components by weight. Components with a
// non-positive weight are recorded in the breakdown but do not move the score.
func weightedMean(parts []component) Result {
	var num, den float64
	bd := Breakdown{}
	for _, p := range parts {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			continue
		}
		if p.weight <= 0 {
			continue
		}
		bd[p.name] = p.value
		num += p.weight * p.value
		den += p.weight
	}
	if den == 0 {
		return Result{Score: 0, Breakdown: Breakdown{}}
	}
	return Result{Score: Clamp(num/den, 0, 100), Breakdown: bd}
}

func mean(parts []component) Result {
	for i := range parts {
		parts[i].weight = 1
	}
	return weightedMean(parts)
}

func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Round rounds x to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
