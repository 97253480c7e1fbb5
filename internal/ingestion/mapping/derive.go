package mapping

import (
	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

// DefaultTotalMarks applies when a row carries marks or a percentage but no
// maximum.
const DefaultTotalMarks = 100.0

// Derive fills derived values in place and returns the names it set:
// academic total marks, percentage from marks, marks from percentage, and
// physical bmi from height and weight.
func Derive(d types.Domain, v map[string]float64) []string {
	var set []string
	switch d {
	case types.DomainAcademic:
		_, hasMarks := v[FieldMarksObtained]
		_, hasPct := v[FieldPercentage]
		if _, ok := v[FieldTotalMarks]; !ok && (hasMarks || hasPct) {
			v[FieldTotalMarks] = DefaultTotalMarks
			set = append(set, FieldTotalMarks)
		}
		total := v[FieldTotalMarks]
		switch {
		case hasMarks && !hasPct && total > 0:
			v[FieldPercentage] = scoring.Round(v[FieldMarksObtained]/total*100, 2)
			set = append(set, FieldPercentage)
		case hasPct && !hasMarks && total > 0:
			v[FieldMarksObtained] = scoring.Round(v[FieldPercentage]*total/100, 2)
			set = append(set, FieldMarksObtained)
		}
	case types.DomainPhysical:
		if _, ok := v[FieldBMI]; ok {
			break
		}
		h, okH := v[FieldHeightCM]
		w, okW := v[FieldWeightKG]
		if okH && okW {
			if b, ok := scoring.BMI(h, w); ok {
				v[FieldBMI] = scoring.Round(b, 2)
				set = append(set, FieldBMI)
			}
		}
	}
	return set
}
