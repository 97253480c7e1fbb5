package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func careerTables() *CareerTables {
	return &CareerTables{
		Weights:              CareerWeights{Skills: 0.5, Subjects: 0.3, Interests: 0.2},
		DevelopmentThreshold: 0.8,
		SubjectSkills:        map[string][]string{"mathematics": {"analytical", "numeracy"}, "art": {"creativity"}},
		Careers: []Career{
			{Name: "Data Scientist", Cluster: "STEM", RequiredSkills: map[string]float64{"analytical": 80, "numeracy": 80},
				Subjects: []string{"mathematics"}, Interests: []string{"technology"}},
			{Name: "Illustrator", Cluster: "Arts", RequiredSkills: map[string]float64{"creativity": 80},
				Subjects: []string{"art"}, Interests: []string{"drawing"}},
			{Name: "Actuary", Cluster: "STEM", RequiredSkills: map[string]float64{"analytical": 90, "numeracy": 90},
				Subjects: []string{"mathematics"}, Interests: []string{"finance"}},
		},
	}
}

func TestMatchCareersRanksAndGroups(t *testing.T) {
	a := Aptitude{
		Skills:    map[string]float64{"analytical": 88, "numeracy": 88, "creativity": 40},
		Subjects:  map[string]float64{"advanced mathematics": 88, "art": 40},
		Traits:    map[string]float64{},
		Interests: []string{"technology"},
	}
	rep := MatchCareers(careerTables(), a, 2)
	require.Len(t, rep.Matches, 2)
	assert.Equal(t, "Data Scientist", rep.Matches[0].Career.Name)
	assert.Equal(t, "Actuary", rep.Matches[1].Career.Name)
	assert.Equal(t, []string{"Data Scientist", "Actuary"}, rep.ByCluster["STEM"])
	assert.NotContains(t, rep.ByCluster, "Arts")
	assert.Contains(t, rep.ClusterScores, "Arts")

	// 0.5*100 + 0.3*88 + 0.2*100 normalized by 1.0.
	assert.InDelta(t, 96.4, rep.Matches[0].Score, 1e-9)
	assert.Empty(t, rep.Matches[0].DevelopmentAreas)
}

func TestDevelopmentAreasBelowThreshold(t *testing.T) {
	a := Aptitude{Skills: map[string]float64{"creativity": 60}, Subjects: map[string]float64{}, Traits: map[string]float64{}}
	rep := MatchCareers(careerTables(), a, 5)
	var illustrator *CareerMatch
	for i := range rep.Matches {
		if rep.Matches[i].Career.Name == "Illustrator" {
			illustrator = &rep.Matches[i]
		}
	}
	require.NotNil(t, illustrator)
	// 60 < 80*0.8
	require.Len(t, illustrator.DevelopmentAreas, 1)
	assert.Equal(t, DevelopmentArea{Skill: "creativity", Current: 60, Required: 80}, illustrator.DevelopmentAreas[0])
}

func TestMarketBonus(t *testing.T) {
	assert.Equal(t, 50.0, marketBonus(0))
	assert.Equal(t, 100.0, marketBonus(40))
	assert.Equal(t, 0.0, marketBonus(-40))
}
