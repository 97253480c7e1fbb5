package observations

import (
	"fmt"
	"time"
)

// Domain names one of the three observation families. DomainGeneric is only
// produced by ingestion when no keyword set matches.
type Domain string

const (
	DomainAcademic      Domain = "academic"
	DomainPsychological Domain = "psychological"
	DomainPhysical      Domain = "physical"
	DomainGeneric       Domain = "generic"
)

var Domains = []Domain{DomainAcademic, DomainPsychological, DomainPhysical}

func (d Domain) Valid() bool {
	switch d {
	case DomainAcademic, DomainPsychological, DomainPhysical:
		return true
	}
	return false
}

const (
	SourceManual = "manual"
	SourceUpload = "upload"
	SourceImport = "import"
)

const (
	AssessmentExam       = "exam"
	AssessmentTest       = "test"
	AssessmentAssignment = "assignment"
	AssessmentProject    = "project"
	AssessmentQuiz       = "quiz"
	AssessmentOverall    = "overall"
)

// AcademicYearFor labels the school year containing t, e.g. "2024-25" for
// October 2024 when the year starts in April.
func AcademicYearFor(t time.Time, startMonth time.Month) string {
	if startMonth < time.January || startMonth > time.December {
		startMonth = time.April
	}
	y := t.Year()
	if t.Month() < startMonth {
		y--
	}
	return fmt.Sprintf("%d-%02d", y, (y+1)%100)
}

// Analysis needs at least this many academic observations and this many in
// total before comprehensive results are produced.
const (
	SufficientAcademic = 3
	SufficientTotal    = 5
)

func Sufficient(academic, total int) bool {
	return academic >= SufficientAcademic && total >= SufficientTotal
}

// CompletionPercent scores a profile: 30 points per domain with any
// observation and 10 more once the data is sufficient for analysis.
func CompletionPercent(academic, psychological, physical int) int {
	p := 0
	for _, n := range []int{academic, psychological, physical} {
		if n > 0 {
			p += 30
		}
	}
	if Sufficient(academic, academic+psychological+physical) {
		p += 10
	}
	return p
}
