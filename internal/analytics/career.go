package analytics

import (
	"sort"
	"strings"

	"github.com/yungbote/edusight-backend/internal/scorers"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

const (
	DefaultCareerMatches = 5
	// MarketTrendScale converts projected growth percent into bonus points
	// around a neutral 50.
	MarketTrendScale = 2.5
)

// Aptitude is what the student brings to the career table.
type Aptitude struct {
	Skills    map[string]float64 `json:"skills"`
	Traits    map[string]float64 `json:"traits"`
	Subjects  map[string]float64 `json:"subjects"`
	Interests []string           `json:"interests"`
}

type DevelopmentArea struct {
	Skill    string  `json:"skill"`
	Current  float64 `json:"current"`
	Required float64 `json:"required"`
}

type CareerMatch struct {
	Career           Career             `json:"career"`
	Score            float64            `json:"score"`
	Components       map[string]float64 `json:"components"`
	DevelopmentAreas []DevelopmentArea  `json:"development_areas"`
}

type CareerReport struct {
	Aptitude      Aptitude            `json:"aptitude"`
	Matches       []CareerMatch       `json:"matches"`
	ByCluster     map[string][]string `json:"by_cluster"`
	ClusterScores map[string]float64  `json:"cluster_scores"`
}

// aptitudeOf derives skill and trait levels from the observation history.
func aptitudeOf(t *CareerTables, h history) Aptitude {
	a := Aptitude{Skills: map[string]float64{}, Traits: map[string]float64{}, Subjects: map[string]float64{}, Interests: []string{}}
	if h.profile != nil {
		for _, in := range h.profile.Interests {
			a.Interests = append(a.Interests, strings.ToLower(strings.TrimSpace(in)))
		}
	}

	skillVals := map[string][]float64{}
	acad := scorers.ScoreAcademic(h.academic)
	for _, s := range acad.Subjects {
		a.Subjects[strings.ToLower(s.Subject)] = s.Mean
		for _, sk := range t.skillsFor(s.Subject) {
			skillVals[sk] = append(skillVals[sk], s.Mean)
		}
	}
	var participation, homework []float64
	for _, o := range h.academic {
		appendIf(&participation, o.ParticipationPercent)
		appendIf(&homework, o.HomeworkPercent)
	}
	if acad.AttendanceMean != nil {
		skillVals["discipline"] = append(skillVals["discipline"], *acad.AttendanceMean)
	}
	if m := meanOrNil(homework); m != nil {
		skillVals["discipline"] = append(skillVals["discipline"], *m)
	}
	if m := meanOrNil(participation); m != nil {
		skillVals["teamwork"] = append(skillVals["teamwork"], *m)
		skillVals["communication"] = append(skillVals["communication"], *m)
	}
	if n := len(h.physical); n > 0 {
		if s := scorers.ScorePhysical(h.physical[n-1], h.profile).Score; s != nil {
			skillVals["physical"] = append(skillVals["physical"], *s)
		}
	}
	for k, xs := range skillVals {
		m, _ := scoring.MeanStd(xs)
		a.Skills[k] = scoring.Round(m, 2)
	}

	if n := len(h.psychological); n > 0 {
		o := h.psychological[n-1]
		p := scorers.ScorePsychological(o)
		if p.DASS.Present() {
			a.Traits["resilience"] = scoring.Round(p.DASS.Score, 2)
		}
		if p.SDQ.Present() {
			a.Traits["emotional_stability"] = scoring.Round(p.SDQ.Score, 2)
		}
		switch {
		case o.PERMARelationships != nil:
			a.Traits["sociability"] = scoring.Round(scoring.PERMAElementScore(*o.PERMARelationships), 2)
		case o.SDQProsocial != nil:
			a.Traits["sociability"] = scoring.SDQProsocialBand(*o.SDQProsocial)
		}
		var motivation []float64
		if o.PERMAEngagement != nil {
			motivation = append(motivation, scoring.PERMAElementScore(*o.PERMAEngagement))
		}
		if o.PERMAAccomplishment != nil {
			motivation = append(motivation, scoring.PERMAElementScore(*o.PERMAAccomplishment))
		}
		if m := meanOrNil(motivation); m != nil {
			a.Traits["motivation"] = *m
		}
	}
	if _, ok := a.Traits["motivation"]; !ok {
		if m := meanOrNil(homework); m != nil {
			a.Traits["motivation"] = *m
		}
	}
	return a
}

// levelFit is the mean of min(1, have/required) over the requirements, in
// percent. No requirements is a full fit.
func levelFit(required, have map[string]float64) float64 {
	if len(required) == 0 {
		return 100
	}
	var sum float64
	for k, req := range required {
		if req <= 0 {
			sum++
			continue
		}
		sum += scoring.Clamp(have[k]/req, 0, 1)
	}
	return 100 * sum / float64(len(required))
}

func subjectFit(career []string, have map[string]float64) float64 {
	if len(career) == 0 {
		return 100
	}
	var sum float64
	for _, want := range career {
		best := 0.0
		for subject, mean := range have {
			if strings.Contains(subject, strings.ToLower(want)) && mean > best {
				best = mean
			}
		}
		sum += best
	}
	return sum / float64(len(career))
}

func interestOverlap(career, have []string) float64 {
	if len(career) == 0 {
		return 100
	}
	set := map[string]bool{}
	for _, h := range have {
		set[h] = true
	}
	n := 0
	for _, c := range career {
		if set[strings.ToLower(c)] {
			n++
		}
	}
	return 100 * float64(n) / float64(len(career))
}

func marketBonus(growthRate float64) float64 {
	return scoring.Clamp(50+MarketTrendScale*growthRate, 0, 100)
}

// MatchCareers scores every career, keeps the top n and groups them by
// cluster.
func MatchCareers(t *CareerTables, a Aptitude, n int) *CareerReport {
	if n <= 0 {
		n = DefaultCareerMatches
	}
	w := t.Weights
	all := make([]CareerMatch, 0, len(t.Careers))
	clusterSum := map[string]float64{}
	clusterN := map[string]int{}
	for _, c := range t.Careers {
		comp := map[string]float64{
			"skills":      levelFit(c.RequiredSkills, a.Skills),
			"personality": levelFit(c.PersonalityTraits, a.Traits),
			"subjects":    subjectFit(c.Subjects, a.Subjects),
			"interests":   interestOverlap(c.Interests, a.Interests),
			"market":      marketBonus(c.GrowthRate),
		}
		score := (w.Skills*comp["skills"] + w.Personality*comp["personality"] + w.Subjects*comp["subjects"] +
			w.Interests*comp["interests"] + w.Market*comp["market"]) / w.total()
		for k, v := range comp {
			comp[k] = scoring.Round(v, 2)
		}
		m := CareerMatch{Career: c, Score: scoring.Round(score, 2), Components: comp, DevelopmentAreas: []DevelopmentArea{}}
		for skill, req := range c.RequiredSkills {
			if cur := a.Skills[skill]; cur < req*t.DevelopmentThreshold {
				m.DevelopmentAreas = append(m.DevelopmentAreas, DevelopmentArea{Skill: skill, Current: cur, Required: req})
			}
		}
		sort.Slice(m.DevelopmentAreas, func(i, j int) bool {
			return m.DevelopmentAreas[i].Skill < m.DevelopmentAreas[j].Skill
		})
		all = append(all, m)
		clusterSum[c.Cluster] += score
		clusterN[c.Cluster]++
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Career.Name < all[j].Career.Name
	})
	if len(all) > n {
		all = all[:n]
	}
	out := &CareerReport{Aptitude: a, Matches: all, ByCluster: map[string][]string{}, ClusterScores: map[string]float64{}}
	for _, m := range all {
		out.ByCluster[m.Career.Cluster] = append(out.ByCluster[m.Career.Cluster], m.Career.Name)
	}
	for k, s := range clusterSum {
		out.ClusterScores[k] = scoring.Round(s/float64(clusterN[k]), 2)
	}
	return out
}
