package analytics

import (
	"sort"
	"time"

	domainobs "github.com/yungbote/edusight-backend/internal/domain/observations"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

type Granularity string

const (
	Monthly Granularity = "month"
	Yearly  Granularity = "year"
)

const (
	// TrajectoryWindow is how many trailing buckets the trajectory label reads.
	TrajectoryWindow = 3
	// TrajectoryThreshold is the per-bucket slope separating a moving
	// trajectory from a stable one.
	TrajectoryThreshold = 1.0
)

const (
	TrajectoryImproving    = "improving"
	TrajectoryDeclining    = "declining"
	TrajectoryStable       = "stable"
	TrajectoryInsufficient = "insufficient_data"
)

// Sample is one dated value with a weight for bucket means.
type Sample struct {
	At     time.Time
	Value  float64
	Weight float64
}

type Bucket struct {
	Key   string    `json:"bucket"`
	Start time.Time `json:"start"`
	Mean  float64   `json:"mean"`
	Count int       `json:"count"`
}

type Trend struct {
	Granularity Granularity `json:"granularity"`
	Buckets     []Bucket    `json:"buckets"`
	Slope       float64     `json:"slope"`
	Trajectory  string      `json:"trajectory"`
}

// bucketKey returns the bucket label and its start. Yearly buckets follow the
// academic year starting at startMonth.
func bucketKey(t time.Time, g Granularity, startMonth time.Month) (string, time.Time) {
	t = t.UTC()
	if g == Yearly {
		y := t.Year()
		if t.Month() < startMonth {
			y--
		}
		return domainobs.AcademicYearFor(t, startMonth), time.Date(y, startMonth, 1, 0, 0, 0, 0, time.UTC)
	}
	return t.Format("2006-01"), time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// BucketSamples groups samples and returns weighted bucket means, oldest first.
func BucketSamples(samples []Sample, g Granularity, startMonth time.Month) []Bucket {
	type acc struct {
		start    time.Time
		num, den float64
		count    int
	}
	by := map[string]*acc{}
	for _, s := range samples {
		key, start := bucketKey(s.At, g, startMonth)
		a := by[key]
		if a == nil {
			a = &acc{start: start}
			by[key] = a
		}
		w := s.Weight
		if w <= 0 {
			w = 1
		}
		a.num += w * s.Value
		a.den += w
		a.count++
	}
	out := make([]Bucket, 0, len(by))
	for k, a := range by {
		out = append(out, Bucket{Key: k, Start: a.start, Mean: scoring.Round(a.num/a.den, 2), Count: a.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// BuildTrend buckets samples and labels the trajectory over the last
// TrajectoryWindow buckets.
func BuildTrend(samples []Sample, g Granularity, startMonth time.Month) Trend {
	buckets := BucketSamples(samples, g, startMonth)
	t := Trend{Granularity: g, Buckets: buckets, Trajectory: TrajectoryInsufficient}
	if len(buckets) < 2 {
		return t
	}
	t.Slope = scoring.Round(scoring.Slope(indexes(len(buckets)), means(buckets)), 4)

	tail := buckets
	if len(tail) > TrajectoryWindow {
		tail = tail[len(tail)-TrajectoryWindow:]
	}
	t.Trajectory = trajectory(scoring.Slope(indexes(len(tail)), means(tail)))
	return t
}

func trajectory(slope float64) string {
	switch {
	case slope > TrajectoryThreshold:
		return TrajectoryImproving
	case slope < -TrajectoryThreshold:
		return TrajectoryDeclining
	default:
		return TrajectoryStable
	}
}

func indexes(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}

func means(bs []Bucket) []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i] = b.Mean
	}
	return out
}

// CarryForward expands buckets onto every key in keys, repeating the most
// recent earlier value. Keys before the first bucket stay absent.
func CarryForward(bs []Bucket, keys []string) map[string]float64 {
	by := make(map[string]float64, len(bs))
	for _, b := range bs {
		by[b.Key] = b.Mean
	}
	out := map[string]float64{}
	var (
		last float64
		have bool
	)
	for _, k := range keys {
		if v, ok := by[k]; ok {
			last, have = v, true
		}
		if have {
			out[k] = last
		}
	}
	return out
}
