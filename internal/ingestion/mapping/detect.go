package mapping

import (
	"strings"

	types "github.com/yungbote/edusight-backend/internal/domain"
)

var domainKeywords = map[types.Domain][]string{
	types.DomainAcademic: {
		"subject", "marks", "grade", "score", "percentage", "exam", "attendance",
		"test", "assignment", "homework", "rank", "teacher", "semester", "term",
	},
	types.DomainPsychological: {
		"stress", "anxiety", "depression", "mood", "sdq", "dass", "perma", "emotional",
		"wellbeing", "conduct", "peer", "prosocial", "hyperactivity", "engagement", "counselor",
	},
	types.DomainPhysical: {
		"height", "weight", "bmi", "fitness", "sleep", "activity", "nutrition", "cardio",
		"strength", "flexibility", "endurance", "heart", "push", "run", "screen",
	},
}

// Detection is the keyword score per domain and the winner.
type Detection struct {
	Domain types.Domain
	Scores map[types.Domain]int
}

// DetectColumns scores column labels against each domain's keyword set; a
// keyword counts once per label it appears in. Ties resolve in the order
// academic, psychological, physical. All-zero scores yield generic.
func DetectColumns(columns []string) Detection {
	labels := make([]string, 0, len(columns))
	for _, c := range columns {
		labels = append(labels, strings.ToLower(c))
	}
	return detect(func(kw string) int {
		n := 0
		for _, l := range labels {
			if strings.Contains(l, kw) {
				n++
			}
		}
		return n
	})
}

// DetectText scores free text by keyword occurrence.
func DetectText(text string) Detection {
	lower := strings.ToLower(text)
	return detect(func(kw string) int { return strings.Count(lower, kw) })
}

func detect(hits func(kw string) int) Detection {
	out := Detection{Domain: types.DomainGeneric, Scores: map[types.Domain]int{}}
	best := 0
	for _, d := range []types.Domain{types.DomainAcademic, types.DomainPsychological, types.DomainPhysical} {
		score := 0
		for _, kw := range domainKeywords[d] {
			score += hits(kw)
		}
		out.Scores[d] = score
		if score > best {
			best = score
			out.Domain = d
		}
	}
	return out
}

// Resolve picks the domain for an upload: a declared hint wins when the
// content shows any evidence for it, otherwise detection decides, and the
// hint is the fallback when detection finds nothing.
func Resolve(det Detection, hint types.Domain) types.Domain {
	if hint.Valid() {
		if det.Scores[hint] > 0 || det.Domain == types.DomainGeneric {
			return hint
		}
	}
	return det.Domain
}
