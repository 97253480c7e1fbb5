// Package recommend turns domain scores and their drivers into a prioritized
// action bundle for students, parents and teachers.
package recommend

import (
	"fmt"
	"sort"
	"time"

	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/scorers"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	}
	return 0
}

const (
	AttendanceThreshold = 75.0
	LowNutritionScore   = 60.0
	ScreenTimeLimit     = 4.0
	// DecliningSlope is the monthly percentage drop that calls for a review.
	DecliningSlope = 1.0
)

type Item struct {
	Domain   string   `json:"domain,omitempty"`
	Category string   `json:"category"`
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
}

type Bundle struct {
	ImmediateActions       []Item    `json:"immediate_actions"`
	ShortTermGoals         []Item    `json:"short_term_goals"`
	LongTermStrategies     []Item    `json:"long_term_strategies"`
	ResourceSuggestions    []Item    `json:"resource_suggestions"`
	InterventionPriority   Priority  `json:"intervention_priority"`
	ParentGuidance         []Item    `json:"parent_guidance"`
	TeacherRecommendations []Item    `json:"teacher_recommendations"`
	GeneratedAt            time.Time `json:"generated_at"`
}

func newBundle() *Bundle {
	return &Bundle{
		ImmediateActions:       []Item{},
		ShortTermGoals:         []Item{},
		LongTermStrategies:     []Item{},
		ResourceSuggestions:    []Item{},
		InterventionPriority:   PriorityLow,
		ParentGuidance:         []Item{},
		TeacherRecommendations: []Item{},
	}
}

// Input is everything the rules read. Age may be nil.
type Input struct {
	Scores scorers.Scores
	Rating *epr.Rating
	Age    *int
}

var domainLabels = map[string]string{
	"academic":      "academic performance",
	"psychological": "emotional wellbeing",
	"physical":      "physical health",
}

// Build applies the rule table. Items within each list are ordered by
// priority, most urgent first.
func Build(in Input) *Bundle {
	b := newBundle()

	in.Scores.Domains().Each(func(name string, s float64) {
		label := domainLabels[name]
		switch {
		case s < scoring.ImmediateActionThreshold:
			b.ImmediateActions = append(b.ImmediateActions, Item{Domain: name, Category: "urgent_intervention",
				Text: fmt.Sprintf("Urgent intervention needed for %s (%.1f)", label, s), Priority: PriorityCritical})
			b.TeacherRecommendations = append(b.TeacherRecommendations, Item{Domain: name, Category: "support_plan",
				Text: fmt.Sprintf("Set up an individual support plan for %s with weekly check-ins", label), Priority: PriorityCritical})
			b.ParentGuidance = append(b.ParentGuidance, Item{Domain: name, Category: "meeting",
				Text: fmt.Sprintf("Meet the school soon to agree a plan for %s", label), Priority: PriorityHigh})
		case s < scoring.ImprovementThreshold:
			b.ShortTermGoals = append(b.ShortTermGoals, Item{Domain: name, Category: "improvement",
				Text: fmt.Sprintf("Raise %s from %.1f to at least %.0f this term", label, s, scoring.ImprovementThreshold), Priority: PriorityMedium})
		case s >= scoring.StrengthThreshold:
			b.LongTermStrategies = append(b.LongTermStrategies, Item{Domain: name, Category: "enrichment",
				Text: fmt.Sprintf("Build on strong %s with enrichment and leadership opportunities", label), Priority: PriorityLow})
		}
	})

	academicRules(b, in.Scores.Academic)
	psychologicalRules(b, in.Scores.Psychological)
	physicalRules(b, in.Scores.Physical, in.Age)

	if in.Rating != nil && in.Rating.Score < scoring.ImmediateActionThreshold {
		b.LongTermStrategies = append(b.LongTermStrategies, Item{Category: "comprehensive_support",
			Text: fmt.Sprintf("Overall rating %.1f calls for a coordinated plan across all domains", in.Rating.Score), Priority: PriorityHigh})
	}

	for _, list := range []*[]Item{&b.ImmediateActions, &b.ShortTermGoals, &b.LongTermStrategies,
		&b.ResourceSuggestions, &b.ParentGuidance, &b.TeacherRecommendations} {
		items := *list
		sort.SliceStable(items, func(i, j int) bool { return items[i].Priority.rank() > items[j].Priority.rank() })
		for _, it := range items {
			if it.Priority.rank() > b.InterventionPriority.rank() {
				b.InterventionPriority = it.Priority
			}
		}
	}
	return b
}

func academicRules(b *Bundle, a scorers.AcademicScore) {
	if a.Score == nil {
		return
	}
	if a.AttendanceMean != nil && *a.AttendanceMean < AttendanceThreshold {
		b.ImmediateActions = append(b.ImmediateActions, Item{Domain: "academic", Category: "attendance",
			Text: fmt.Sprintf("Address attendance (%.1f%%, below %.0f%%)", *a.AttendanceMean, AttendanceThreshold), Priority: PriorityHigh})
		b.ParentGuidance = append(b.ParentGuidance, Item{Domain: "academic", Category: "attendance",
			Text: "Keep a daily routine that gets the student to school on time", Priority: PriorityHigh})
	}
	if a.ImprovementRate < -DecliningSlope {
		b.ImmediateActions = append(b.ImmediateActions, Item{Domain: "academic", Category: "declining_performance",
			Text: fmt.Sprintf("Performance declining (%.1f points per month); schedule review", a.ImprovementRate), Priority: PriorityHigh})
		b.TeacherRecommendations = append(b.TeacherRecommendations, Item{Domain: "academic", Category: "review",
			Text: "Review recent assessments with the student to find where marks are being lost", Priority: PriorityHigh})
	}
	for _, s := range a.Weaknesses {
		b.ShortTermGoals = append(b.ShortTermGoals, Item{Domain: "academic", Category: "subject",
			Text: fmt.Sprintf("Targeted practice in %s", s), Priority: PriorityMedium})
		b.ResourceSuggestions = append(b.ResourceSuggestions, Item{Domain: "academic", Category: "tutoring",
			Text: fmt.Sprintf("Peer tutoring or remedial sessions for %s", s), Priority: PriorityMedium})
	}
	for _, s := range a.Strengths {
		b.LongTermStrategies = append(b.LongTermStrategies, Item{Domain: "academic", Category: "subject_strength",
			Text: fmt.Sprintf("Consider advanced coursework or competitions in %s", s), Priority: PriorityLow})
	}
}

func psychologicalRules(b *Bundle, p scorers.PsychologicalScore) {
	keys := make([]string, 0, len(p.Severity))
	for k := range p.Severity {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	high := false
	for _, k := range keys {
		switch p.Severity[k] {
		case scoring.SeveritySevere, scoring.SeverityExtremelySevere:
			high = true
			b.TeacherRecommendations = append(b.TeacherRecommendations, Item{Domain: "psychological", Category: "wellbeing",
				Text: fmt.Sprintf("Refer to the school counsellor: %s is %s", k, p.Severity[k]), Priority: PriorityCritical})
		case scoring.SeverityModerate:
			b.ShortTermGoals = append(b.ShortTermGoals, Item{Domain: "psychological", Category: "wellbeing",
				Text: fmt.Sprintf("Monitor %s and reassess within six weeks", k), Priority: PriorityMedium})
		}
	}
	if high {
		b.ImmediateActions = append(b.ImmediateActions, Item{Domain: "psychological", Category: "mental_health",
			Text: "Mental health support strongly recommended", Priority: PriorityCritical})
		b.ResourceSuggestions = append(b.ResourceSuggestions, Item{Domain: "psychological", Category: "counselling",
			Text: "Professional counselling or a child and adolescent mental health service", Priority: PriorityCritical})
		b.ParentGuidance = append(b.ParentGuidance, Item{Domain: "psychological", Category: "mental_health",
			Text: "Talk openly at home and arrange a consultation with a mental health professional", Priority: PriorityCritical})
	}
}

func physicalRules(b *Bundle, ph scorers.PhysicalScore, age *int) {
	o := ph.Latest
	if o == nil {
		return
	}
	if ph.Age != nil {
		age = ph.Age
	}
	if o.SleepHours != nil {
		if r := scoring.OptimalSleep(age); *o.SleepHours < r.Min {
			b.ShortTermGoals = append(b.ShortTermGoals, Item{Domain: "physical", Category: "lifestyle",
				Text: fmt.Sprintf("Increase sleep from %.1f to %.0f-%.0f hours a night", *o.SleepHours, r.Min, r.Max), Priority: PriorityMedium})
			b.ParentGuidance = append(b.ParentGuidance, Item{Domain: "physical", Category: "lifestyle",
				Text: "Set a consistent bedtime and keep screens out of the bedroom", Priority: PriorityMedium})
		}
	}
	if o.NutritionScore != nil && *o.NutritionScore < LowNutritionScore {
		b.ShortTermGoals = append(b.ShortTermGoals, Item{Domain: "physical", Category: "lifestyle",
			Text: fmt.Sprintf("Improve diet quality (nutrition score %.0f)", *o.NutritionScore), Priority: PriorityMedium})
		b.ResourceSuggestions = append(b.ResourceSuggestions, Item{Domain: "physical", Category: "nutrition",
			Text: "Nutrition counselling or a school meal plan review", Priority: PriorityMedium})
	}
	if o.ScreenTimeHours != nil && *o.ScreenTimeHours > ScreenTimeLimit {
		b.LongTermStrategies = append(b.LongTermStrategies, Item{Domain: "physical", Category: "lifestyle",
			Text: fmt.Sprintf("Reduce recreational screen time below %.0f hours a day", ScreenTimeLimit), Priority: PriorityLow})
	}
}
