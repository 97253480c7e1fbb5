package analytics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/edusight-backend/internal/platform/pointers"
)

func TestBundledTablesLoad(t *testing.T) {
	b, err := LoadBenchmarks()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"national", "state", "local", "school_type"}, b.Names())
	require.Len(t, b.AgeGroups, 3)

	c, err := LoadCareers()
	require.NoError(t, err)
	assert.NotEmpty(t, c.Careers)
	assert.InDelta(t, 1.0, c.Weights.total(), 1e-9)
}

func TestPercentileIsMonotone(t *testing.T) {
	b, err := LoadBenchmarks()
	require.NoError(t, err)
	for _, name := range b.Names() {
		for domain, d := range b.Benchmarks[name].Domains {
			prev := -1.0
			for s := 0.0; s <= 100; s += 0.5 {
				p := d.Percentile(s)
				require.GreaterOrEqual(t, p, prev, "%s/%s at %v", name, domain, s)
				prev = p
			}
		}
	}
}

func TestPercentileInterpolates(t *testing.T) {
	d := Distribution{Mean: 50, Table: [][]float64{{0, 0}, {50, 50}, {100, 100}}}
	assert.InDelta(t, 25.0, d.Percentile(25), 1e-9)
	assert.InDelta(t, 0.0, d.Percentile(-10), 1e-9)
	assert.InDelta(t, 100.0, d.Percentile(120), 1e-9)
}

func TestParseBenchmarksRejectsDecreasingTable(t *testing.T) {
	_, err := ParseBenchmarks([]byte(`
version: 1
benchmarks:
  national:
    label: National
    domains:
      academic: {mean: 60, table: [[0, 0], [50, 60], [60, 40]]}
`))
	assert.Error(t, err)
}

func TestAgeGroupLookup(t *testing.T) {
	b, err := LoadBenchmarks()
	require.NoError(t, err)
	assert.Nil(t, b.AgeGroup(nil))
	require.NotNil(t, b.AgeGroup(pointers.Int(12)))
	assert.Equal(t, "11-14", b.AgeGroup(pointers.Int(12)).Name)
	assert.Nil(t, b.AgeGroup(pointers.Int(30)))
}

func TestTablesOverrideFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "careers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 9
weights: {skills: 1, personality: 0, subjects: 0, interests: 0, market: 0}
development_threshold: 0.5
careers:
  - name: Cartographer
    cluster: Science
    required_skills: {analytical: 60}
`), 0o600))
	t.Setenv(CareersEnv, path)

	c, err := LoadCareers()
	require.NoError(t, err)
	assert.Equal(t, 9, c.Version)
	require.Len(t, c.Careers, 1)
	assert.Equal(t, "Cartographer", c.Careers[0].Name)
}
