package analytics

import (
	"sort"
	"time"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/scorers"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

// history is every observation of one student, oldest first per domain.
type history struct {
	profile       *types.StudentProfile
	academic      []*types.AcademicObservation
	psychological []*types.PsychologicalObservation
	physical      []*types.PhysicalObservation
}

func (h history) counts() (int, int, int) {
	return len(h.academic), len(h.psychological), len(h.physical)
}

func academicSamples(obs []*types.AcademicObservation) []Sample {
	out := make([]Sample, 0, len(obs))
	for _, o := range obs {
		w := o.TotalMarks
		if w <= 0 {
			w = 100
		}
		out = append(out, Sample{At: o.ObservedAt(), Value: o.Percentage, Weight: w})
	}
	return out
}

func psychologicalSamples(obs []*types.PsychologicalObservation) []Sample {
	out := make([]Sample, 0, len(obs))
	for _, o := range obs {
		v := o.CompositeScore
		if v == nil {
			v = scorers.ScorePsychological(o).Score
		}
		if v != nil {
			out = append(out, Sample{At: o.AssessmentDate, Value: *v})
		}
	}
	return out
}

func physicalSamples(obs []*types.PhysicalObservation, profile *types.StudentProfile) []Sample {
	out := make([]Sample, 0, len(obs))
	for _, o := range obs {
		v := o.CompositeScore
		if v == nil {
			v = scorers.ScorePhysical(o, profile).Score
		}
		if v != nil {
			out = append(out, Sample{At: o.MeasurementDate, Value: *v})
		}
	}
	return out
}

// monthRange lists every month key from the earliest to the latest bucket.
func monthRange(sets ...[]Bucket) []string {
	var first, last time.Time
	for _, bs := range sets {
		for _, b := range bs {
			if first.IsZero() || b.Start.Before(first) {
				first = b.Start
			}
			if b.Start.After(last) {
				last = b.Start
			}
		}
	}
	if first.IsZero() {
		return nil
	}
	var keys []string
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		keys = append(keys, m.Format("2006-01"))
	}
	return keys
}

// monthlySeries fills gaps so each month holds the latest known value.
func monthlySeries(bs []Bucket) ([]string, []float64) {
	keys := monthRange(bs)
	filled := CarryForward(bs, keys)
	outKeys := make([]string, 0, len(keys))
	vals := make([]float64, 0, len(keys))
	for _, k := range keys {
		if v, ok := filled[k]; ok {
			outKeys = append(outKeys, k)
			vals = append(vals, v)
		}
	}
	return outKeys, vals
}

// eprBuckets composes a monthly EPR from the domain buckets, carrying each
// domain's latest value forward.
func eprBuckets(c *epr.Composer, academic, psychological, physical []Bucket) []Bucket {
	keys := monthRange(academic, psychological, physical)
	a := CarryForward(academic, keys)
	p := CarryForward(psychological, keys)
	ph := CarryForward(physical, keys)
	out := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		var ds scoring.DomainScores
		if v, ok := a[k]; ok {
			ds.Academic = &v
		}
		if v, ok := p[k]; ok {
			ds.Psychological = &v
		}
		if v, ok := ph[k]; ok {
			ds.Physical = &v
		}
		r := c.Compose(ds)
		if r == nil {
			continue
		}
		start, _ := time.Parse("2006-01", k)
		out = append(out, Bucket{Key: k, Start: start, Mean: scoring.Round(r.Score, 2), Count: 1})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
