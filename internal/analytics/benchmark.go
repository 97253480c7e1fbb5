package analytics

import (
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

// AgeGroupBenchmark is the comparison key for the student's age bracket.
const AgeGroupBenchmark = "age_group"

// PrimaryBenchmark supplies the headline percentiles.
const PrimaryBenchmark = "national"

type Comparison struct {
	Score      float64 `json:"score"`
	Mean       float64 `json:"mean"`
	Difference float64 `json:"difference"`
	Percentile float64 `json:"percentile"`
	Position   string  `json:"position"`
}

type BenchmarkReport struct {
	AcademicYear           string                           `json:"academic_year,omitempty"`
	Scores                 map[string]float64               `json:"scores"`
	Percentiles            map[string]float64               `json:"percentiles"`
	ComparisonsByBenchmark map[string]map[string]Comparison `json:"comparisons_by_benchmark"`
	AgeGroup               string                           `json:"age_group,omitempty"`
}

// domainScores flattens domain scores and the rating into the benchmark
// table's domain names.
func domainScores(ds scoring.DomainScores, rating *epr.Rating) map[string]float64 {
	out := map[string]float64{}
	ds.Each(func(name string, s float64) { out[name] = s })
	if rating != nil {
		out["epr"] = rating.Score
	}
	return out
}

func compare(score float64, d Distribution) Comparison {
	diff := score - d.Mean
	pos := "at"
	switch {
	case diff >= 5:
		pos = "above"
	case diff <= -5:
		pos = "below"
	}
	return Comparison{
		Score:      scoring.Round(score, 2),
		Mean:       d.Mean,
		Difference: scoring.Round(diff, 2),
		Percentile: scoring.Round(d.Percentile(score), 1),
		Position:   pos,
	}
}

// Benchmark compares scores against every table, and against the age group
// when age is known.
func Benchmark(t *BenchmarkTables, scores map[string]float64, age *int) *BenchmarkReport {
	out := &BenchmarkReport{
		Scores:                 map[string]float64{},
		Percentiles:            map[string]float64{},
		ComparisonsByBenchmark: map[string]map[string]Comparison{},
	}
	for k, v := range scores {
		out.Scores[k] = scoring.Round(v, 2)
	}
	add := func(name string, domains map[string]Distribution) {
		cmp := map[string]Comparison{}
		for d, s := range scores {
			if dist, ok := domains[d]; ok {
				cmp[d] = compare(s, dist)
			}
		}
		out.ComparisonsByBenchmark[name] = cmp
	}
	for _, name := range t.Names() {
		add(name, t.Benchmarks[name].Domains)
	}
	if g := t.AgeGroup(age); g != nil {
		out.AgeGroup = g.Name
		add(AgeGroupBenchmark, g.Domains)
	}
	for d, c := range out.ComparisonsByBenchmark[PrimaryBenchmark] {
		out.Percentiles[d] = c.Percentile
	}
	return out
}
