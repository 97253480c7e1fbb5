package scoring

// Academic component names.
const (
	StandardizedTest   = "standardized_test"
	GPA                = "gpa"
	Attendance         = "attendance"
	Engagement         = "engagement"
	LearningPace       = "learning_pace"
	TeacherEval        = "teacher_eval"
	HomeworkCompletion = "homework_completion"
	ClassParticipation = "class_participation"
)

// AcademicInputs are on 0-100 except TeacherEval, which is on 1-10.
type AcademicInputs struct {
	StandardizedTest   *float64
	GPA                *float64
	Attendance         *float64
	Engagement         *float64
	LearningPace       *float64
	TeacherEval        *float64
	HomeworkCompletion *float64
	ClassParticipation *float64
}

type Weights map[string]float64

// DefaultAcademicWeights returns a fresh copy of the default weights. The first
// six components sum to 1.0; homework and participation only count when an
// override gives them weight.
func DefaultAcademicWeights() Weights {
	return Weights{
		StandardizedTest:   0.25,
		GPA:                0.20,
		Attendance:         0.15,
		Engagement:         0.15,
		LearningPace:       0.10,
		TeacherEval:        0.15,
		HomeworkCompletion: 0,
		ClassParticipation: 0,
	}
}

// AcademicComposite merges overrides into the default weights and returns the
// weighted mean of the supplied components.
func AcademicComposite(in AcademicInputs, overrides Weights) Result {
	w := DefaultAcademicWeights()
	for k, v := range overrides {
		if _, ok := w[k]; ok {
			w[k] = v
		}
	}

	var parts []component
	add := func(name string, v *float64, scale func(float64) float64) {
		if v == nil {
			return
		}
		parts = append(parts, component{name: name, value: scale(*v), weight: w[name]})
	}
	pct := func(x float64) float64 { return Clamp(x, 0, 100) }

	add(StandardizedTest, in.StandardizedTest, pct)
	add(GPA, in.GPA, pct)
	add(Attendance, in.Attendance, pct)
	add(Engagement, in.Engagement, pct)
	add(LearningPace, in.LearningPace, pct)
	add(TeacherEval, in.TeacherEval, func(x float64) float64 {
		return Clamp((Clamp(x, 1, 10)-1)*100/9, 0, 100)
	})
	add(HomeworkCompletion, in.HomeworkCompletion, pct)
	add(ClassParticipation, in.ClassParticipation, pct)
	return weightedMean(parts)
}
