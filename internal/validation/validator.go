package validation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/domain/issues"
	"github.com/yungbote/edusight-backend/internal/ingestion/mapping"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

// BMITolerance is the relative gap allowed between a supplied bmi and the
// one derived from height and weight.
const BMITolerance = 0.05

// Finding is one problem with one field of a candidate observation.
type Finding struct {
	Field          string          `json:"field"`
	Kind           issues.Kind     `json:"kind"`
	Code           string          `json:"code"`
	Severity       issues.Severity `json:"severity"`
	CurrentValue   string          `json:"current_value,omitempty"`
	SuggestedValue *string         `json:"suggested_value,omitempty"`
	Description    string          `json:"description"`
}

// Issue converts the finding into an open validation issue.
func (f Finding) Issue(studentID uuid.UUID, d types.Domain) *types.ValidationIssue {
	return &types.ValidationIssue{
		StudentID:      studentID,
		Domain:         string(d),
		FieldName:      f.Field,
		Kind:           f.Kind,
		Code:           f.Code,
		Severity:       f.Severity,
		Status:         issues.StatusOpen,
		CurrentValue:   f.CurrentValue,
		SuggestedValue: f.SuggestedValue,
		Description:    f.Description,
	}
}

// Result is a validated candidate. Drop is set when a required key is
// missing or an observation invariant cannot hold.
type Result struct {
	Domain   types.Domain
	Values   mapping.Values
	Derived  []string
	Findings []Finding
	Drop     bool
}

// Worst returns the most severe finding level, empty when there is none.
func Worst(fs []Finding) issues.Severity {
	var worst issues.Severity
	for _, f := range fs {
		if f.Severity.Rank() > worst.Rank() {
			worst = f.Severity
		}
	}
	return worst
}

type Validator struct {
	rules RuleTable
}

func New(rules RuleTable) *Validator {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Validator{rules: rules}
}

// CheckNumber applies the type and range rule for (d, field); nil means the
// value is acceptable or the field has no rule.
func (v *Validator) CheckNumber(d types.Domain, field string, x float64) *Finding {
	r, ok := v.rules.Lookup(d, field)
	if !ok {
		return nil
	}
	cur := formatNumber(x)
	if math.IsNaN(x) || math.IsInf(x, 0) || (r.Integer && x != math.Trunc(x)) {
		return &Finding{
			Field:        field,
			Kind:         issues.KindInvalidValue,
			Code:         issues.CodeInvalidType,
			Severity:     issues.SeverityHigh,
			CurrentValue: cur,
			Description:  fmt.Sprintf("%s must be a whole number", field),
		}
	}
	switch {
	case x < r.Min:
		s := formatNumber(r.Min)
		return &Finding{
			Field:          field,
			Kind:           issues.KindRangeError,
			Code:           issues.CodeValueTooLow,
			Severity:       issues.SeverityMedium,
			CurrentValue:   cur,
			SuggestedValue: &s,
			Description:    fmt.Sprintf("%s low: %s is below the minimum %s", field, cur, s),
		}
	case x > r.Max:
		s := formatNumber(r.Max)
		return &Finding{
			Field:          field,
			Kind:           issues.KindRangeError,
			Code:           issues.CodeValueTooHigh,
			Severity:       issues.SeverityMedium,
			CurrentValue:   cur,
			SuggestedValue: &s,
			Description:    fmt.Sprintf("%s high: %s exceeds the maximum %s", field, cur, s),
		}
	}
	return nil
}

// Check parses raw canonical fields for domain d, derives missing values,
// and runs type, range, cross-field and required-key checks.
func (v *Validator) Check(d types.Domain, raw map[string]string) Result {
	res := Result{Domain: d, Values: mapping.NewValues()}

	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		val := strings.TrimSpace(raw[name])
		if val == "" {
			continue
		}
		f, ok := mapping.Lookup(d, name)
		if !ok {
			continue
		}
		switch f.Kind {
		case mapping.Numeric:
			x, ok := mapping.CleanNumber(val)
			if !ok {
				res.Findings = append(res.Findings, Finding{
					Field:        name,
					Kind:         issues.KindInvalidValue,
					Code:         issues.CodeInvalidType,
					Severity:     issues.SeverityHigh,
					CurrentValue: val,
					Description:  fmt.Sprintf("%s is not a number", name),
				})
				continue
			}
			res.Values.Numbers[name] = x
		case mapping.Date:
			if _, ok := mapping.ParseDate(val); !ok {
				res.Findings = append(res.Findings, Finding{
					Field:        name,
					Kind:         issues.KindFormatError,
					Code:         issues.CodeInvalidType,
					Severity:     issues.SeverityLow,
					CurrentValue: val,
					Description:  fmt.Sprintf("%s is not a recognised date", name),
				})
				continue
			}
			res.Values.Text[name] = val
		default:
			res.Values.Text[name] = val
		}
	}

	res.Derived = mapping.Derive(d, res.Values.Numbers)

	numNames := make([]string, 0, len(res.Values.Numbers))
	for k := range res.Values.Numbers {
		numNames = append(numNames, k)
	}
	sort.Strings(numNames)
	for _, name := range numNames {
		if f := v.CheckNumber(d, name, res.Values.Numbers[name]); f != nil {
			res.Findings = append(res.Findings, *f)
		}
	}

	switch d {
	case types.DomainAcademic:
		v.checkAcademic(&res)
	case types.DomainPsychological:
		if len(res.Values.Numbers) == 0 && res.Values.Text[mapping.FieldMoodNotes] == "" {
			res.missing("", "no instrument scores or notes")
		}
	case types.DomainPhysical:
		v.checkPhysical(&res)
	}
	return res
}

func (v *Validator) checkAcademic(res *Result) {
	n := res.Values.Numbers
	if strings.TrimSpace(res.Values.Text[mapping.FieldSubject]) == "" {
		res.missing(mapping.FieldSubject, "subject is required")
	}
	marks, hasMarks := n[mapping.FieldMarksObtained]
	total := n[mapping.FieldTotalMarks]
	if !hasMarks {
		res.missing(mapping.FieldMarksObtained, "marks obtained or percentage is required")
		return
	}
	if total <= 0 || marks < 0 {
		res.Drop = true
		return
	}
	if marks > total {
		s := formatNumber(total)
		res.Findings = append(res.Findings, Finding{
			Field:          mapping.FieldMarksObtained,
			Kind:           issues.KindInconsistentData,
			Code:           issues.CodeInconsistent,
			Severity:       issues.SeverityMedium,
			CurrentValue:   formatNumber(marks),
			SuggestedValue: &s,
			Description:    fmt.Sprintf("marks obtained %s exceed total marks %s", formatNumber(marks), s),
		})
		res.Drop = true
	}
}

func (v *Validator) checkPhysical(res *Result) {
	n := res.Values.Numbers
	if len(n) == 0 {
		res.missing("", "no physical measurements")
		return
	}
	if containsString(res.Derived, mapping.FieldBMI) {
		return
	}
	bmi, okB := n[mapping.FieldBMI]
	h, okH := n[mapping.FieldHeightCM]
	w, okW := n[mapping.FieldWeightKG]
	if !okB || !okH || !okW {
		return
	}
	want, ok := scoring.BMI(h, w)
	if !ok || want == 0 {
		return
	}
	if math.Abs(bmi-want)/want > BMITolerance {
		s := formatNumber(scoring.Round(want, 2))
		res.Findings = append(res.Findings, Finding{
			Field:          mapping.FieldBMI,
			Kind:           issues.KindInconsistentData,
			Code:           issues.CodeInconsistent,
			Severity:       issues.SeverityMedium,
			CurrentValue:   formatNumber(bmi),
			SuggestedValue: &s,
			Description:    fmt.Sprintf("bmi %s does not match height and weight (expected %s)", formatNumber(bmi), s),
		})
	}
}

func (r *Result) missing(field, desc string) {
	r.Drop = true
	r.Findings = append(r.Findings, Finding{
		Field:       field,
		Kind:        issues.KindMissingData,
		Code:        issues.CodeMissingField,
		Severity:    issues.SeverityCritical,
		Description: desc,
	})
}

func formatNumber(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Stringify renders mutation payload values as raw field strings so manual
// edits go through the same checks as ingested rows. Nil values are skipped.
func Stringify(fields map[string]any) map[string]string {
	out := make(map[string]string, len(fields))
	for k, val := range fields {
		switch x := val.(type) {
		case nil:
			continue
		case string:
			out[k] = x
		case float64:
			out[k] = formatNumber(x)
		case float32:
			out[k] = formatNumber(float64(x))
		case int:
			out[k] = strconv.Itoa(x)
		case int64:
			out[k] = strconv.FormatInt(x, 10)
		case *float64:
			if x != nil {
				out[k] = formatNumber(*x)
			}
		case fmt.Stringer:
			out[k] = x.String()
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	return out
}
