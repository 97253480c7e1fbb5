package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBucketSamplesWeightsByMarks(t *testing.T) {
	bs := BucketSamples([]Sample{
		{At: month(2024, 5, 3), Value: 50, Weight: 100},
		{At: month(2024, 5, 20), Value: 80, Weight: 50},
		{At: month(2024, 6, 1), Value: 70},
	}, Monthly, time.April)
	require.Len(t, bs, 2)
	assert.Equal(t, "2024-05", bs[0].Key)
	assert.InDelta(t, 60.0, bs[0].Mean, 1e-9)
	assert.Equal(t, 2, bs[0].Count)
	assert.Equal(t, "2024-06", bs[1].Key)
}

func TestYearlyBucketsFollowAcademicYear(t *testing.T) {
	bs := BucketSamples([]Sample{
		{At: month(2024, 3, 10), Value: 60},
		{At: month(2024, 4, 10), Value: 70},
		{At: month(2025, 2, 10), Value: 80},
	}, Yearly, time.April)
	require.Len(t, bs, 2)
	assert.Equal(t, "2023-24", bs[0].Key)
	assert.Equal(t, "2024-25", bs[1].Key)
	assert.InDelta(t, 75.0, bs[1].Mean, 1e-9)
}

func TestTrajectoryReadsTrailingWindow(t *testing.T) {
	var ss []Sample
	// Long decline, then a sharp recovery over the last three months.
	for i, v := range []float64{90, 80, 70, 60, 65, 72} {
		ss = append(ss, Sample{At: month(2024, time.Month(i+1), 15), Value: v})
	}
	tr := BuildTrend(ss, Monthly, time.April)
	assert.Less(t, tr.Slope, 0.0)
	assert.Equal(t, TrajectoryImproving, tr.Trajectory)

	flat := BuildTrend([]Sample{{At: month(2024, 1, 1), Value: 70}, {At: month(2024, 2, 1), Value: 70.5}}, Monthly, time.April)
	assert.Equal(t, TrajectoryStable, flat.Trajectory)

	one := BuildTrend([]Sample{{At: month(2024, 1, 1), Value: 70}}, Monthly, time.April)
	assert.Equal(t, TrajectoryInsufficient, one.Trajectory)
}

func TestCarryForwardFillsGaps(t *testing.T) {
	bs := []Bucket{{Key: "2024-02", Mean: 60}, {Key: "2024-04", Mean: 80}}
	got := CarryForward(bs, []string{"2024-01", "2024-02", "2024-03", "2024-04"})
	assert.Equal(t, map[string]float64{"2024-02": 60, "2024-03": 60, "2024-04": 80}, got)
}
