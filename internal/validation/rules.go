// Package validation checks candidate observation fields against a per
// (domain, field) rule table and turns findings into validation issues.
package validation

import (
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/ingestion/mapping"
)

// Rule bounds one numeric field. Bounds are inclusive.
type Rule struct {
	Min     float64
	Max     float64
	Integer bool
}

type ruleKey struct {
	domain types.Domain
	field  string
}

// RuleTable is keyed by domain and canonical field name.
type RuleTable map[ruleKey]Rule

func (t RuleTable) Lookup(d types.Domain, field string) (Rule, bool) {
	r, ok := t[ruleKey{d, field}]
	return r, ok
}

func (t RuleTable) Set(d types.Domain, field string, r Rule) {
	t[ruleKey{d, field}] = r
}

// DefaultRules returns a fresh copy of the built-in rule table.
func DefaultRules() RuleTable {
	t := RuleTable{}
	pct := Rule{Min: 0, Max: 100}

	a := types.DomainAcademic
	t.Set(a, mapping.FieldMarksObtained, Rule{Min: 0, Max: 1000})
	t.Set(a, mapping.FieldTotalMarks, Rule{Min: 1, Max: 1000})
	t.Set(a, mapping.FieldPercentage, pct)
	t.Set(a, mapping.FieldClassRank, Rule{Min: 1, Max: 1000, Integer: true})
	t.Set(a, mapping.FieldAttendancePercent, pct)
	t.Set(a, mapping.FieldHomeworkPercent, pct)
	t.Set(a, mapping.FieldParticipationPercent, pct)

	p := types.DomainPsychological
	for _, f := range []string{mapping.FieldSDQEmotional, mapping.FieldSDQConduct, mapping.FieldSDQHyperactivity, mapping.FieldSDQPeer, mapping.FieldSDQProsocial} {
		t.Set(p, f, Rule{Min: 0, Max: 10})
	}
	for _, f := range []string{mapping.FieldDASSDepression, mapping.FieldDASSAnxiety, mapping.FieldDASSStress} {
		t.Set(p, f, Rule{Min: 0, Max: 42})
	}
	for _, f := range []string{mapping.FieldPERMAPositiveEmotion, mapping.FieldPERMAEngagement, mapping.FieldPERMARelationships, mapping.FieldPERMAMeaning, mapping.FieldPERMAAccomplishment} {
		t.Set(p, f, Rule{Min: 1, Max: 10})
	}

	ph := types.DomainPhysical
	t.Set(ph, mapping.FieldHeightCM, Rule{Min: 50, Max: 250})
	t.Set(ph, mapping.FieldWeightKG, Rule{Min: 10, Max: 300})
	t.Set(ph, mapping.FieldBMI, Rule{Min: 10, Max: 40})
	t.Set(ph, mapping.FieldBMIPercentile, pct)
	for _, f := range []string{mapping.FieldCardio, mapping.FieldStrength, mapping.FieldFlexibility, mapping.FieldEndurance, mapping.FieldSleepQuality, mapping.FieldNutritionScore} {
		t.Set(ph, f, pct)
	}
	t.Set(ph, mapping.FieldPushUps, Rule{Min: 0, Max: 200, Integer: true})
	t.Set(ph, mapping.FieldSitUps, Rule{Min: 0, Max: 200, Integer: true})
	t.Set(ph, mapping.FieldRunTimeSeconds, Rule{Min: 30, Max: 3600})
	t.Set(ph, mapping.FieldRestingHeartRate, Rule{Min: 30, Max: 220, Integer: true})
	t.Set(ph, mapping.FieldSystolicBP, Rule{Min: 60, Max: 250, Integer: true})
	t.Set(ph, mapping.FieldDiastolicBP, Rule{Min: 30, Max: 150, Integer: true})
	for _, f := range []string{mapping.FieldDailyActivityHours, mapping.FieldSleepHours, mapping.FieldScreenTimeHours} {
		t.Set(ph, f, Rule{Min: 0, Max: 24})
	}
	return t
}
