package scorers

import (
	"sort"
	"strings"
	"time"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/domain/observations"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

const (
	subjectStrengthMean = 85.0
	subjectWeakMean     = 60.0
	subjectWeakSlope    = -5.0
	daysPerMonth        = 30.0
)

type SubjectStats struct {
	Subject string  `json:"subject"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`

	// Slope is the change in percentage per assessment, oldest first.
	Slope float64 `json:"slope"`
}

type AcademicScore struct {
	// Score is the total-marks weighted average percentage; nil with no observations.
	Score *float64 `json:"score,omitempty"`

	Count             int            `json:"count"`
	Composite         scoring.Result `json:"composite"`
	Subjects          []SubjectStats `json:"subjects"`
	GradeDistribution map[string]int `json:"grade_distribution"`
	Consistency       float64        `json:"consistency"`
	ImprovementRate   float64        `json:"improvement_rate"`
	Strengths         []string       `json:"strengths"`
	Weaknesses        []string       `json:"weaknesses"`
	AttendanceMean    *float64       `json:"attendance_mean,omitempty"`

	Latest *types.AcademicObservation `json:"-"`
}

// ScoreAcademic summarizes academic observations. Observations are expected
// oldest first; the order is re-established by observation time regardless.
func ScoreAcademic(obs []*types.AcademicObservation) AcademicScore {
	out := AcademicScore{
		Subjects:          []SubjectStats{},
		GradeDistribution: map[string]int{},
		Strengths:         []string{},
		Weaknesses:        []string{},
		Composite:         scoring.Result{Breakdown: scoring.Breakdown{}},
	}
	if len(obs) == 0 {
		return out
	}
	sorted := make([]*types.AcademicObservation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ObservedAt().Before(sorted[j].ObservedAt())
	})
	out.Count = len(sorted)
	out.Latest = sorted[len(sorted)-1]

	var num, den float64
	pcts := make([]float64, 0, len(sorted))
	var attendance, homework, participation []float64
	bySubject := map[string][]float64{}
	var order []string
	for _, o := range sorted {
		w := o.TotalMarks
		if w <= 0 {
			w = 100
		}
		num += w * o.Percentage
		den += w
		pcts = append(pcts, o.Percentage)

		key := strings.ToLower(strings.TrimSpace(o.Subject))
		if _, ok := bySubject[key]; !ok {
			order = append(order, key)
		}
		bySubject[key] = append(bySubject[key], o.Percentage)

		grade := o.LetterGrade
		if grade == "" {
			grade = observations.LetterGradeFor(o.Percentage)
		}
		out.GradeDistribution[grade]++

		if o.AttendancePercent != nil {
			attendance = append(attendance, *o.AttendancePercent)
		}
		if o.HomeworkPercent != nil {
			homework = append(homework, *o.HomeworkPercent)
		}
		if o.ParticipationPercent != nil {
			participation = append(participation, *o.ParticipationPercent)
		}
	}
	avg := num / den
	out.Score = &avg
	out.Consistency = scoring.Consistency(pcts)
	out.ImprovementRate = monthlySlope(sorted)

	sort.Strings(order)
	for _, subj := range order {
		vals := bySubject[subj]
		m, s := scoring.MeanStd(vals)
		st := SubjectStats{Subject: subj, Count: len(vals), Mean: m, Std: s, Slope: scoring.Slope(indexAxis(len(vals)), vals)}
		out.Subjects = append(out.Subjects, st)
		if m >= subjectStrengthMean {
			out.Strengths = append(out.Strengths, subj)
		}
		if m < subjectWeakMean || (len(vals) > 1 && st.Slope <= subjectWeakSlope) {
			out.Weaknesses = append(out.Weaknesses, subj)
		}
	}

	out.AttendanceMean = meanPtr(attendance)
	out.Composite = scoring.AcademicComposite(scoring.AcademicInputs{
		StandardizedTest:   out.Score,
		Attendance:         out.AttendanceMean,
		HomeworkCompletion: meanPtr(homework),
		ClassParticipation: meanPtr(participation),
	}, nil)
	return out
}

// monthlySlope is the regression slope of percentage over elapsed months.
func monthlySlope(sorted []*types.AcademicObservation) float64 {
	if len(sorted) < 2 {
		return 0
	}
	t0 := sorted[0].ObservedAt()
	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, o := range sorted {
		xs[i] = monthsBetween(t0, o.ObservedAt())
		ys[i] = o.Percentage
	}
	return scoring.Slope(xs, ys)
}

func monthsBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24 / daysPerMonth
}

func indexAxis(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}

func meanPtr(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	m, _ := scoring.MeanStd(xs)
	return &m
}
