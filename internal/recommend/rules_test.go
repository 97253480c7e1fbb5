package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/platform/pointers"
	"github.com/yungbote/edusight-backend/internal/scorers"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

func texts(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Text)
	}
	return out
}

func TestLowDomainScoreIsUrgent(t *testing.T) {
	b := Build(Input{Scores: scorers.Scores{Academic: scorers.AcademicScore{Score: pointers.Float64(42)}}})
	require.NotEmpty(t, b.ImmediateActions)
	assert.Equal(t, "urgent_intervention", b.ImmediateActions[0].Category)
	assert.Equal(t, PriorityCritical, b.ImmediateActions[0].Priority)
	assert.Equal(t, PriorityCritical, b.InterventionPriority)
	assert.NotEmpty(t, b.TeacherRecommendations)
}

func TestMidRangeScoreIsImprovementGoal(t *testing.T) {
	b := Build(Input{Scores: scorers.Scores{Academic: scorers.AcademicScore{Score: pointers.Float64(62)}}})
	assert.Empty(t, b.ImmediateActions)
	require.Len(t, b.ShortTermGoals, 1)
	assert.Equal(t, "improvement", b.ShortTermGoals[0].Category)
	assert.Equal(t, PriorityMedium, b.InterventionPriority)
}

func TestAttendanceAndDecline(t *testing.T) {
	b := Build(Input{Scores: scorers.Scores{Academic: scorers.AcademicScore{
		Score:           pointers.Float64(78),
		AttendanceMean:  pointers.Float64(70),
		ImprovementRate: -1.5,
	}}})
	cats := map[string]bool{}
	for _, it := range b.ImmediateActions {
		cats[it.Category] = true
	}
	assert.True(t, cats["attendance"])
	assert.True(t, cats["declining_performance"])
	assert.Equal(t, PriorityHigh, b.InterventionPriority)

	slow := Build(Input{Scores: scorers.Scores{Academic: scorers.AcademicScore{Score: pointers.Float64(78), ImprovementRate: -0.5}}})
	assert.Empty(t, slow.ImmediateActions)
}

func TestSevereDASSRecommendsMentalHealthSupport(t *testing.T) {
	p := scorers.ScorePsychological(&types.PsychologicalObservation{DASSStress: pointers.Float64(30), DASSAnxiety: pointers.Float64(2)})
	b := Build(Input{Scores: scorers.Scores{Psychological: p}})
	assert.Contains(t, texts(b.ImmediateActions), "Mental health support strongly recommended")
	assert.Equal(t, PriorityCritical, b.InterventionPriority)
	assert.NotEmpty(t, b.ResourceSuggestions)
	assert.Equal(t, scoring.SeveritySevere, p.Severity["stress"])
}

func TestLifestyleRules(t *testing.T) {
	o := &types.PhysicalObservation{SleepHours: pointers.Float64(6), NutritionScore: pointers.Float64(40), ScreenTimeHours: pointers.Float64(6)}
	b := Build(Input{Scores: scorers.Scores{Physical: scorers.ScorePhysical(o, nil)}, Age: pointers.Int(14)})
	lifestyle := 0
	for _, it := range b.ShortTermGoals {
		if it.Category == "lifestyle" {
			lifestyle++
		}
	}
	assert.Equal(t, 2, lifestyle)
	assert.NotEmpty(t, b.LongTermStrategies)
}

func TestItemsOrderedByPriority(t *testing.T) {
	p := scorers.ScorePsychological(&types.PsychologicalObservation{DASSDepression: pointers.Float64(30)})
	b := Build(Input{
		Scores: scorers.Scores{Academic: scorers.AcademicScore{Score: pointers.Float64(80), AttendanceMean: pointers.Float64(60)}, Psychological: p},
		Rating: &epr.Rating{Score: 45},
	})
	for i := 1; i < len(b.ImmediateActions); i++ {
		assert.GreaterOrEqual(t, b.ImmediateActions[i-1].Priority.rank(), b.ImmediateActions[i].Priority.rank())
	}
	assert.Equal(t, PriorityCritical, b.ImmediateActions[0].Priority)
}
