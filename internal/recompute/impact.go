package recompute

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/edusight-backend/internal/ingestion/mapping"
)

type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

const (
	// SignificantChange is the relative change above which a numeric field
	// counts as significantly changed.
	SignificantChange = 0.10
	// HighImpactFields is how many significant changes make a correction
	// high impact on their own.
	HighImpactFields = 3
	// CompositeEpsilon is the smallest domain composite movement treated as
	// a change to the rating input.
	CompositeEpsilon = 0.01
)

// keyFields move an observation between records when edited, so any change
// to them is significant.
var keyFields = map[string]bool{
	mapping.FieldSubject:         true,
	mapping.FieldAssessmentType:  true,
	mapping.FieldCategory:        true,
	mapping.FieldAssessmentDate:  true,
	mapping.FieldMeasurementDate: true,
}

// SignificantFields lists, sorted, the fields whose value moved by more than
// SignificantChange between before and after. A value appearing or
// disappearing is significant.
func SignificantFields(before, after map[string]string) []string {
	var out []string
	for _, k := range mapping.Changed(before, after) {
		b, hasB := before[k]
		a, hasA := after[k]
		if hasB != hasA {
			out = append(out, k)
			continue
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(b), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if errX == nil && errY == nil {
			if relativeChange(x, y) > SignificantChange {
				out = append(out, k)
			}
			continue
		}
		if keyFields[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func relativeChange(before, after float64) float64 {
	if before == after {
		return 0
	}
	if before == 0 {
		return math.Inf(1)
	}
	return math.Abs(after-before) / math.Abs(before)
}

// Classify grades a correction: high when enough fields changed
// significantly or the domain composite moved, medium on any significant
// change, low otherwise.
func Classify(significant int, compositeBefore, compositeAfter *float64) Impact {
	if significant >= HighImpactFields || compositeMoved(compositeBefore, compositeAfter) {
		return ImpactHigh
	}
	if significant > 0 {
		return ImpactMedium
	}
	return ImpactLow
}

func compositeMoved(before, after *float64) bool {
	switch {
	case before == nil && after == nil:
		return false
	case before == nil || after == nil:
		return true
	}
	return math.Abs(*after-*before) >= CompositeEpsilon
}
