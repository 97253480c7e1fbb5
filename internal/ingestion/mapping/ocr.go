package mapping

import (
	"regexp"
	"strings"

	types "github.com/yungbote/edusight-backend/internal/domain"
)

type pattern struct {
	re     *regexp.Regexp
	fields []string
}

func p(expr string, fields ...string) pattern {
	return pattern{re: regexp.MustCompile(expr), fields: fields}
}

const num = `(\d+(?:\.\d+)?)`

var psychologicalPatterns = []pattern{
	p(`(?i)depression\s*(?:score)?\s*[:\-=]?\s*`+num, FieldDASSDepression),
	p(`(?i)anxiety\s*(?:score)?\s*[:\-=]?\s*`+num, FieldDASSAnxiety),
	p(`(?i)stress\s*(?:score)?\s*[:\-=]?\s*`+num, FieldDASSStress),
	p(`(?i)emotional(?:\s+symptoms)?\s*[:\-=]?\s*`+num, FieldSDQEmotional),
	p(`(?i)conduct(?:\s+problems)?\s*[:\-=]?\s*`+num, FieldSDQConduct),
	p(`(?i)hyperactivity(?:\s*/\s*inattention)?\s*[:\-=]?\s*`+num, FieldSDQHyperactivity),
	p(`(?i)peer(?:\s+relationship)?(?:\s+problems)?\s*[:\-=]?\s*`+num, FieldSDQPeer),
	p(`(?i)prosocial(?:\s+behaviou?r)?\s*[:\-=]?\s*`+num, FieldSDQProsocial),
	p(`(?i)positive\s+emotions?\s*[:\-=]?\s*`+num, FieldPERMAPositiveEmotion),
	p(`(?i)engagement\s*[:\-=]?\s*`+num, FieldPERMAEngagement),
	p(`(?i)relationships\s*[:\-=]?\s*`+num, FieldPERMARelationships),
	p(`(?i)meaning\s*[:\-=]?\s*`+num, FieldPERMAMeaning),
	p(`(?i)(?:accomplishment|achievement)\s*[:\-=]?\s*`+num, FieldPERMAAccomplishment),
}

var physicalPatterns = []pattern{
	p(`(?i)height\s*:?\s*`+num+`\s*cm`, FieldHeightCM),
	p(`(?i)weight\s*:?\s*`+num+`\s*kg`, FieldWeightKG),
	p(`(?i)\bbmi\s*:?\s*`+num, FieldBMI),
	p(`(?i)sleep(?:\s+hours)?\s*:?\s*`+num, FieldSleepHours),
	p(`(?i)sleep\s+quality\s*:?\s*`+num, FieldSleepQuality),
	p(`(?i)heart\s*rate\s*:?\s*`+num, FieldRestingHeartRate),
	p(`(?i)(?:blood\s+pressure|\bbp)\s*:?\s*(\d{2,3})\s*/\s*(\d{2,3})`, FieldSystolicBP, FieldDiastolicBP),
	p(`(?i)cardio\w*(?:\s+fitness)?\s*(?:score)?\s*:?\s*`+num, FieldCardio),
	p(`(?i)strength\s*(?:score)?\s*:?\s*`+num, FieldStrength),
	p(`(?i)flexibility\s*(?:score)?\s*:?\s*`+num, FieldFlexibility),
	p(`(?i)endurance\s*(?:score)?\s*:?\s*`+num, FieldEndurance),
	p(`(?i)push[\s-]?ups?\s*:?\s*(\d+)`, FieldPushUps),
	p(`(?i)sit[\s-]?ups?\s*:?\s*(\d+)`, FieldSitUps),
	p(`(?i)nutrition\s*(?:score)?\s*:?\s*`+num, FieldNutritionScore),
	p(`(?i)screen\s*time\s*(?:hours)?\s*:?\s*`+num, FieldScreenTimeHours),
	p(`(?i)activity\s*(?:hours)?\s*:?\s*`+num, FieldDailyActivityHours),
}

var (
	academicMarksLine   = regexp.MustCompile(`(?im)^\s*([a-z][a-z .&'-]{1,40}?)\s*[:\-|]?\s*(\d{1,4}(?:\.\d+)?)\s*(?:/|out\s+of)\s*(\d{1,4}(?:\.\d+)?)`)
	academicPercentLine = regexp.MustCompile(`(?im)^\s*([a-z][a-z .&'-]{1,40}?)\s*[:\-|]?\s*(\d{1,3}(?:\.\d+)?)\s*%`)
	attendanceLine      = regexp.MustCompile(`(?i)attendance\s*(?:percentage|rate)?\s*[:\-]?\s*(\d{1,3}(?:\.\d+)?)\s*%?`)
)

// Labels on report lines that look like subject rows but are not subjects.
var notSubjects = map[string]bool{
	"attendance": true, "total": true, "grand total": true, "percentage": true,
	"overall": true, "aggregate": true, "result": true, "rank": true,
}

// TextMatch is what the OCR patterns recovered from free text.
type TextMatch struct {
	Domain  types.Domain
	Records []map[string]string
	// Hits counts pattern matches; it drives OCR confidence.
	Hits int
}

// MatchText applies the domain's patterns to text. Academic text yields one
// record per subject line; the other domains yield at most one record.
func MatchText(d types.Domain, text string) TextMatch {
	out := TextMatch{Domain: d}
	switch d {
	case types.DomainAcademic:
		out.Records, out.Hits = matchAcademic(text)
	case types.DomainPsychological:
		out.Records, out.Hits = matchSingle(psychologicalPatterns, text)
	case types.DomainPhysical:
		out.Records, out.Hits = matchSingle(physicalPatterns, text)
	}
	return out
}

func matchSingle(patterns []pattern, text string) ([]map[string]string, int) {
	rec := map[string]string{}
	hits := 0
	for _, pt := range patterns {
		m := pt.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		matched := false
		for i, f := range pt.fields {
			if i+1 >= len(m) {
				break
			}
			if _, dup := rec[f]; dup {
				continue
			}
			rec[f] = m[i+1]
			matched = true
		}
		if matched {
			hits++
		}
	}
	if len(rec) == 0 {
		return nil, 0
	}
	return []map[string]string{rec}, hits
}

func matchAcademic(text string) ([]map[string]string, int) {
	var attendance string
	hits := 0
	if m := attendanceLine.FindStringSubmatch(text); m != nil {
		attendance = m[1]
		hits++
	}

	seen := map[string]bool{}
	var out []map[string]string
	add := func(subject string, rec map[string]string) {
		subject = strings.TrimSpace(subject)
		key := strings.ToLower(subject)
		if key == "" || notSubjects[key] || seen[key] {
			return
		}
		seen[key] = true
		rec[FieldSubject] = subject
		if attendance != "" {
			rec[FieldAttendancePercent] = attendance
		}
		out = append(out, rec)
		hits++
	}
	for _, m := range academicMarksLine.FindAllStringSubmatch(text, -1) {
		add(m[1], map[string]string{FieldMarksObtained: m[2], FieldTotalMarks: m[3]})
	}
	for _, m := range academicPercentLine.FindAllStringSubmatch(text, -1) {
		add(m[1], map[string]string{FieldPercentage: m[2]})
	}
	return out, hits
}
