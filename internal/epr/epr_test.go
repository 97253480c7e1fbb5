package epr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/pointers"
	"github.com/yungbote/edusight-backend/internal/scoring"
)

func TestComposeOnlySuppliedDomainsCount(t *testing.T) {
	c := Default()

	r := c.Compose(scoring.DomainScores{Academic: pointers.Float64(80)})
	require.NotNil(t, r)
	assert.InDelta(t, 80.0, r.Score, 1e-9)
	assert.Equal(t, BandHealthyProgress, r.Band)
	assert.Equal(t, map[string]float64{"academic": 0.40}, r.Weights)

	r = c.Compose(scoring.DomainScores{
		Academic:      pointers.Float64(90),
		Psychological: pointers.Float64(80),
		Physical:      pointers.Float64(70),
	})
	require.NotNil(t, r)
	assert.InDelta(t, 0.4*90+0.3*80+0.3*70, r.Score, 1e-9)

	assert.Nil(t, c.Compose(scoring.DomainScores{}))
}

func TestBandBoundaries(t *testing.T) {
	c := Default()
	cases := []struct {
		score float64
		want  Band
	}{
		{100, BandThriving},
		{85, BandThriving},
		{84.999, BandHealthyProgress},
		{70, BandHealthyProgress},
		{69.9, BandNeedsSupport},
		{50, BandNeedsSupport},
		{49.99, BandAtRisk},
		{0, BandAtRisk},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Band(tc.score), "score %v", tc.score)
	}
}

func TestBandMonotone(t *testing.T) {
	c := Default()
	prev := c.Band(0).Rank()
	for x := 0.0; x <= 100; x += 0.25 {
		r := c.Band(x).Rank()
		require.GreaterOrEqual(t, r, prev, "band regressed at %v", x)
		prev = r
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	c := Default()
	in := scoring.DomainScores{Academic: pointers.Float64(73.2), Physical: pointers.Float64(41)}
	a := c.Compose(in)
	b := c.Compose(in)
	assert.Equal(t, a, b)
}

func TestNewRejectsInvalidBands(t *testing.T) {
	_, err := New(DefaultWeights(), Boundaries{Thriving: 70, Healthy: 85, NeedsSupport: 50})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidBands)

	_, err = New(Weights{}, DefaultBoundaries())
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	c, err := New(Weights{Academic: 1}, Boundaries{Thriving: 90, Healthy: 75, NeedsSupport: 60})
	require.NoError(t, err)
	assert.Equal(t, BandNeedsSupport, c.Band(74))
}
