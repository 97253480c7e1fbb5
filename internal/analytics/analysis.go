package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	types "github.com/yungbote/edusight-backend/internal/domain"
	domainobs "github.com/yungbote/edusight-backend/internal/domain/observations"
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/scorers"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

const InsufficientMessage = "Not enough data for a comprehensive analysis"

type Counts struct {
	Academic      int `json:"academic"`
	Psychological int `json:"psychological"`
	Physical      int `json:"physical"`
	Total         int `json:"total"`
}

type Comprehensive struct {
	DataSufficient        bool                   `json:"data_sufficient"`
	Message               string                 `json:"message,omitempty"`
	Recommendations       []string               `json:"recommendations,omitempty"`
	Counts                Counts                 `json:"counts"`
	AcademicAnalysis      *AcademicAnalysis      `json:"academic_analysis,omitempty"`
	PsychologicalAnalysis *PsychologicalAnalysis `json:"psychological_analysis,omitempty"`
	PhysicalAnalysis      *PhysicalAnalysis      `json:"physical_analysis,omitempty"`
	OverallInsights       *OverallInsights       `json:"overall_insights,omitempty"`
	Correlations          []Correlation          `json:"correlations,omitempty"`
	GeneratedAt           time.Time              `json:"generated_at"`
}

type AcademicAnalysis struct {
	Summary          scorers.AcademicScore `json:"summary"`
	ByYear           map[string]float64    `json:"by_year"`
	ByAssessmentType map[string]float64    `json:"by_assessment_type"`
	Trend            Trend                 `json:"trend"`
}

type PsychologicalAnalysis struct {
	Count            int                        `json:"count"`
	Latest           scorers.PsychologicalScore `json:"latest"`
	AverageComposite *float64                   `json:"average_composite,omitempty"`
	Trend            Trend                      `json:"trend"`
}

type Measure struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

type Growth struct {
	Heights []Measure `json:"heights"`
	Weights []Measure `json:"weights"`
	// Per-month rates from a least-squares fit; zero with fewer than two points.
	HeightPerMonth float64 `json:"height_per_month"`
	WeightPerMonth float64 `json:"weight_per_month"`
}

type Lifestyle struct {
	SleepHours         *float64 `json:"sleep_hours,omitempty"`
	DailyActivityHours *float64 `json:"daily_activity_hours,omitempty"`
	ScreenTimeHours    *float64 `json:"screen_time_hours,omitempty"`
	NutritionScore     *float64 `json:"nutrition_score,omitempty"`
}

type PhysicalAnalysis struct {
	Count     int                   `json:"count"`
	Latest    scorers.PhysicalScore `json:"latest"`
	Fitness   map[string]float64    `json:"fitness"`
	Growth    Growth                `json:"growth"`
	Lifestyle Lifestyle             `json:"lifestyle"`
	Trend     Trend                 `json:"trend"`
}

type OverallInsights struct {
	Domains  scoring.DomainScores `json:"domains"`
	Rating   *epr.Rating          `json:"rating,omitempty"`
	Insights scoring.Insights     `json:"insights"`
}

type Correlation struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Coefficient float64 `json:"coefficient"`
	Strength    string  `json:"strength"`
	Pairs       int     `json:"pairs"`
}

// MinCorrelationPairs is the fewest paired buckets a correlation is reported on.
const MinCorrelationPairs = 3

// insufficient returns the dismissal for a student below the sufficiency
// threshold, naming what to add.
func insufficient(c Counts) *Comprehensive {
	recs := []string{}
	if c.Academic < domainobs.SufficientAcademic {
		recs = append(recs, "Upload more academic records")
	}
	if c.Psychological == 0 {
		recs = append(recs, "Add a psychological assessment (SDQ, DASS-21 or PERMA)")
	}
	if c.Physical == 0 {
		recs = append(recs, "Add a physical health record")
	}
	if c.Total < domainobs.SufficientTotal {
		recs = append(recs, fmt.Sprintf("At least %d observations are needed in total; %d recorded", domainobs.SufficientTotal, c.Total))
	}
	return &Comprehensive{
		DataSufficient:  false,
		Message:         InsufficientMessage,
		Recommendations: recs,
		Counts:          c,
	}
}

func analyzeAcademic(obs []*types.AcademicObservation, startMonth time.Month) *AcademicAnalysis {
	out := &AcademicAnalysis{
		Summary:          scorers.ScoreAcademic(obs),
		ByYear:           map[string]float64{},
		ByAssessmentType: map[string]float64{},
		Trend:            BuildTrend(academicSamples(obs), Monthly, startMonth),
	}
	year := map[string][]*types.AcademicObservation{}
	kind := map[string][]float64{}
	for _, o := range obs {
		year[o.AcademicYear] = append(year[o.AcademicYear], o)
		k := o.AssessmentType
		if k == "" {
			k = "unspecified"
		}
		kind[k] = append(kind[k], o.Percentage)
	}
	for y, rows := range year {
		if s := scorers.ScoreAcademic(rows).Score; s != nil {
			out.ByYear[y] = scoring.Round(*s, 2)
		}
	}
	for k, xs := range kind {
		m, _ := scoring.MeanStd(xs)
		out.ByAssessmentType[k] = scoring.Round(m, 2)
	}
	return out
}

func analyzePsychological(obs []*types.PsychologicalObservation, startMonth time.Month) *PsychologicalAnalysis {
	out := &PsychologicalAnalysis{Count: len(obs)}
	if len(obs) == 0 {
		return out
	}
	out.Latest = scorers.ScorePsychological(obs[len(obs)-1])
	samples := psychologicalSamples(obs)
	if len(samples) > 0 {
		vals := make([]float64, len(samples))
		for i, s := range samples {
			vals[i] = s.Value
		}
		m, _ := scoring.MeanStd(vals)
		m = scoring.Round(m, 2)
		out.AverageComposite = &m
	}
	out.Trend = BuildTrend(samples, Monthly, startMonth)
	return out
}

func analyzePhysical(obs []*types.PhysicalObservation, profile *types.StudentProfile, startMonth time.Month) *PhysicalAnalysis {
	out := &PhysicalAnalysis{Count: len(obs), Fitness: map[string]float64{}}
	if len(obs) == 0 {
		return out
	}
	latest := obs[len(obs)-1]
	out.Latest = scorers.ScorePhysical(latest, profile)
	for name, v := range map[string]*float64{
		"cardio":      latest.Cardio,
		"strength":    latest.Strength,
		"flexibility": latest.Flexibility,
		"endurance":   latest.Endurance,
	} {
		if v != nil {
			out.Fitness[name] = *v
		}
	}
	out.Growth = growthOf(obs)

	var sleep, activity, screen, nutrition []float64
	for _, o := range obs {
		appendIf(&sleep, o.SleepHours)
		appendIf(&activity, o.DailyActivityHours)
		appendIf(&screen, o.ScreenTimeHours)
		appendIf(&nutrition, o.NutritionScore)
	}
	out.Lifestyle = Lifestyle{
		SleepHours:         meanOrNil(sleep),
		DailyActivityHours: meanOrNil(activity),
		ScreenTimeHours:    meanOrNil(screen),
		NutritionScore:     meanOrNil(nutrition),
	}
	out.Trend = BuildTrend(physicalSamples(obs, profile), Monthly, startMonth)
	return out
}

const daysPerMonth = 30.4375

func monthsSince(origin, t time.Time) float64 {
	return t.Sub(origin).Hours() / 24 / daysPerMonth
}

func growthOf(obs []*types.PhysicalObservation) Growth {
	g := Growth{Heights: []Measure{}, Weights: []Measure{}}
	for _, o := range obs {
		if o.HeightCM != nil {
			g.Heights = append(g.Heights, Measure{At: o.MeasurementDate, Value: *o.HeightCM})
		}
		if o.WeightKG != nil {
			g.Weights = append(g.Weights, Measure{At: o.MeasurementDate, Value: *o.WeightKG})
		}
	}
	g.HeightPerMonth = scoring.Round(ratePerMonth(g.Heights), 4)
	g.WeightPerMonth = scoring.Round(ratePerMonth(g.Weights), 4)
	return g
}

func ratePerMonth(ms []Measure) float64 {
	if len(ms) < 2 {
		return 0
	}
	xs, ys := measureAxes(ms)
	return scoring.Slope(xs, ys)
}

func measureAxes(ms []Measure) ([]float64, []float64) {
	origin := ms[0].At
	xs := make([]float64, len(ms))
	ys := make([]float64, len(ms))
	for i, m := range ms {
		xs[i] = monthsSince(origin, m.At)
		ys[i] = m.Value
	}
	return xs, ys
}

func appendIf(xs *[]float64, v *float64) {
	if v != nil {
		*xs = append(*xs, *v)
	}
}

func meanOrNil(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	m, _ := scoring.MeanStd(xs)
	m = scoring.Round(m, 2)
	return &m
}

// overall rates the student on the full academic history and the latest
// psychological and physical observations.
func overall(c *epr.Composer, a *AcademicAnalysis, p *PsychologicalAnalysis, ph *PhysicalAnalysis) *OverallInsights {
	ds := scoring.DomainScores{
		Academic:      a.Summary.Score,
		Psychological: p.Latest.Score,
		Physical:      ph.Latest.Score,
	}
	out := &OverallInsights{Domains: ds, Rating: c.Compose(ds)}
	var score *float64
	if out.Rating != nil {
		s := out.Rating.Score
		score = &s
	}
	out.Insights = scoring.PerformanceInsights(ds, score)
	return out
}

// correlations pairs monthly domain means and, per academic observation,
// attendance against percentage.
func correlations(h history, startMonth time.Month) []Correlation {
	series := map[string][]Bucket{
		"academic":      BucketSamples(academicSamples(h.academic), Monthly, startMonth),
		"psychological": BucketSamples(psychologicalSamples(h.psychological), Monthly, startMonth),
		"physical":      BucketSamples(physicalSamples(h.physical, h.profile), Monthly, startMonth),
	}
	var sleep []Sample
	for _, o := range h.physical {
		if o.SleepHours != nil {
			sleep = append(sleep, Sample{At: o.MeasurementDate, Value: *o.SleepHours})
		}
	}
	series["sleep_hours"] = BucketSamples(sleep, Monthly, startMonth)

	pairs := [][2]string{
		{"academic", "psychological"},
		{"academic", "physical"},
		{"psychological", "physical"},
		{"academic", "sleep_hours"},
	}
	out := []Correlation{}
	for _, p := range pairs {
		xs, ys := paired(series[p[0]], series[p[1]])
		if len(xs) < MinCorrelationPairs {
			continue
		}
		r := scoring.Pearson(xs, ys)
		out = append(out, Correlation{A: p[0], B: p[1], Coefficient: scoring.Round(r, 3), Strength: strength(r), Pairs: len(xs)})
	}

	var att, pct []float64
	for _, o := range h.academic {
		if o.AttendancePercent != nil {
			att = append(att, *o.AttendancePercent)
			pct = append(pct, o.Percentage)
		}
	}
	if len(att) >= MinCorrelationPairs {
		r := scoring.Pearson(att, pct)
		out = append(out, Correlation{A: "attendance", B: "academic", Coefficient: scoring.Round(r, 3), Strength: strength(r), Pairs: len(att)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Coefficient) > math.Abs(out[j].Coefficient)
	})
	return out
}

func paired(a, b []Bucket) ([]float64, []float64) {
	by := make(map[string]float64, len(b))
	for _, x := range b {
		by[x.Key] = x.Mean
	}
	var xs, ys []float64
	for _, x := range a {
		if y, ok := by[x.Key]; ok {
			xs = append(xs, x.Mean)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

func strength(r float64) string {
	switch a := math.Abs(r); {
	case a >= 0.7:
		return "strong"
	case a >= 0.4:
		return "moderate"
	case a >= 0.2:
		return "weak"
	default:
		return "negligible"
	}
}
