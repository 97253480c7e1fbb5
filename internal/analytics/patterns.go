package analytics

import (
	"sort"
	"time"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/scorers"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

type SubjectRank struct {
	Subject     string  `json:"subject"`
	Mean        float64 `json:"mean"`
	Consistency float64 `json:"consistency"`
	Slope       float64 `json:"slope"`
	Count       int     `json:"count"`
}

// Seasonality is the mean academic percentage per calendar month.
type Seasonality struct {
	Month string  `json:"month"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

type Patterns struct {
	DataSufficient   bool               `json:"data_sufficient"`
	Subjects         []SubjectRank      `json:"subjects"`
	ByAssessmentType map[string]float64 `json:"by_assessment_type"`
	Seasonality      []Seasonality      `json:"seasonality"`
	Consistency      float64            `json:"consistency"`
	Correlations     []Correlation      `json:"correlations"`
	SleepVsAcademic  *Correlation       `json:"sleep_vs_academic,omitempty"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

func subjectRanking(obs []*types.AcademicObservation) []SubjectRank {
	s := scorers.ScoreAcademic(obs)
	by := map[string][]float64{}
	for _, o := range obs {
		by[o.Subject] = append(by[o.Subject], o.Percentage)
	}
	out := make([]SubjectRank, 0, len(s.Subjects))
	for _, st := range s.Subjects {
		out = append(out, SubjectRank{
			Subject:     st.Subject,
			Mean:        scoring.Round(st.Mean, 2),
			Consistency: scoring.Round(scoring.Consistency(by[st.Subject]), 2),
			Slope:       scoring.Round(st.Slope, 4),
			Count:       st.Count,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}

func seasonality(obs []*types.AcademicObservation) []Seasonality {
	var sums [12]float64
	var counts [12]int
	for _, o := range obs {
		m := o.ObservedAt().UTC().Month() - 1
		sums[m] += o.Percentage
		counts[m]++
	}
	out := []Seasonality{}
	for i := range sums {
		if counts[i] == 0 {
			continue
		}
		out = append(out, Seasonality{
			Month: time.Month(i + 1).String(),
			Mean:  scoring.Round(sums[i]/float64(counts[i]), 2),
			Count: counts[i],
		})
	}
	return out
}

// findPatterns reads recurring structure out of a full history.
func findPatterns(h history, startMonth time.Month) *Patterns {
	out := &Patterns{
		Subjects:         subjectRanking(h.academic),
		ByAssessmentType: map[string]float64{},
		Seasonality:      seasonality(h.academic),
		Correlations:     correlations(h, startMonth),
	}
	kinds := map[string][]float64{}
	all := make([]float64, 0, len(h.academic))
	for _, o := range h.academic {
		kinds[o.AssessmentType] = append(kinds[o.AssessmentType], o.Percentage)
		all = append(all, o.Percentage)
	}
	for k, xs := range kinds {
		m, _ := scoring.MeanStd(xs)
		out.ByAssessmentType[k] = scoring.Round(m, 2)
	}
	out.Consistency = scoring.Round(scoring.Consistency(all), 2)
	for i := range out.Correlations {
		if c := out.Correlations[i]; c.A == "academic" && c.B == "sleep_hours" {
			out.SleepVsAcademic = &c
		}
	}
	return out
}
