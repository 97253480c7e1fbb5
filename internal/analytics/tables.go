package analytics

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	BenchmarksEnv = "EPR_BENCHMARKS_YAML"
	CareersEnv    = "EPR_CAREERS_YAML"
)

//go:embed benchmarks.yaml careers.yaml
var tablesFS embed.FS

// Distribution maps a score to a percentile by linear interpolation between
// tabulated (score, percentile) points.
type Distribution struct {
	Mean  float64     `yaml:"mean" json:"mean"`
	Table [][]float64 `yaml:"table" json:"-"`
}

// Percentile is monotone non-decreasing in score.
func (d Distribution) Percentile(score float64) float64 {
	t := d.Table
	if len(t) == 0 {
		return 0
	}
	if score <= t[0][0] {
		return t[0][1]
	}
	for i := 1; i < len(t); i++ {
		if score <= t[i][0] {
			x0, y0 := t[i-1][0], t[i-1][1]
			x1, y1 := t[i][0], t[i][1]
			if x1 == x0 {
				return y1
			}
			return y0 + (score-x0)*(y1-y0)/(x1-x0)
		}
	}
	return t[len(t)-1][1]
}

func (d Distribution) validate(name string) error {
	if len(d.Table) < 2 {
		return fmt.Errorf("%s: table needs at least two points", name)
	}
	for _, p := range d.Table {
		if len(p) != 2 {
			return fmt.Errorf("%s: table points are [score, percentile] pairs", name)
		}
	}
	for i := 1; i < len(d.Table); i++ {
		if d.Table[i][0] <= d.Table[i-1][0] || d.Table[i][1] < d.Table[i-1][1] {
			return fmt.Errorf("%s: table must increase in score and not decrease in percentile", name)
		}
	}
	return nil
}

type Benchmark struct {
	Label   string                  `yaml:"label" json:"label"`
	Domains map[string]Distribution `yaml:"domains" json:"domains"`
}

type AgeGroup struct {
	Name    string                  `yaml:"name"`
	MinAge  int                     `yaml:"min_age"`
	MaxAge  int                     `yaml:"max_age"`
	Domains map[string]Distribution `yaml:"domains"`
}

type BenchmarkTables struct {
	Version    int                  `yaml:"version"`
	Benchmarks map[string]Benchmark `yaml:"benchmarks"`
	AgeGroups  []AgeGroup           `yaml:"age_groups"`
}

// Names lists the fixed benchmarks in sorted order.
func (t *BenchmarkTables) Names() []string {
	out := make([]string, 0, len(t.Benchmarks))
	for k := range t.Benchmarks {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AgeGroup returns the group covering age, or nil.
func (t *BenchmarkTables) AgeGroup(age *int) *AgeGroup {
	if age == nil {
		return nil
	}
	for i := range t.AgeGroups {
		g := &t.AgeGroups[i]
		if *age >= g.MinAge && *age <= g.MaxAge {
			return g
		}
	}
	return nil
}

func (t *BenchmarkTables) validate() error {
	if len(t.Benchmarks) == 0 {
		return fmt.Errorf("benchmarks: no benchmarks defined")
	}
	for name, b := range t.Benchmarks {
		for d, dist := range b.Domains {
			if err := dist.validate(name + "." + d); err != nil {
				return err
			}
		}
	}
	for _, g := range t.AgeGroups {
		if g.MaxAge < g.MinAge {
			return fmt.Errorf("age group %s: max_age below min_age", g.Name)
		}
		for d, dist := range g.Domains {
			if err := dist.validate("age_group " + g.Name + "." + d); err != nil {
				return err
			}
		}
	}
	return nil
}

type Career struct {
	Name              string             `yaml:"name" json:"name"`
	Cluster           string             `yaml:"cluster" json:"cluster"`
	RequiredSkills    map[string]float64 `yaml:"required_skills" json:"required_skills"`
	PersonalityTraits map[string]float64 `yaml:"personality_traits" json:"personality_traits"`
	Subjects          []string           `yaml:"subjects" json:"subjects"`
	Interests         []string           `yaml:"interests" json:"interests"`
	GrowthRate        float64            `yaml:"growth_rate" json:"growth_rate"`
	SalaryRange       string             `yaml:"salary_range" json:"salary_range"`
}

type CareerWeights struct {
	Skills      float64 `yaml:"skills"`
	Personality float64 `yaml:"personality"`
	Subjects    float64 `yaml:"subjects"`
	Interests   float64 `yaml:"interests"`
	Market      float64 `yaml:"market"`
}

func (w CareerWeights) total() float64 {
	return w.Skills + w.Personality + w.Subjects + w.Interests + w.Market
}

type CareerTables struct {
	Version              int                 `yaml:"version"`
	Weights              CareerWeights       `yaml:"weights"`
	DevelopmentThreshold float64             `yaml:"development_threshold"`
	SubjectSkills        map[string][]string `yaml:"subject_skills"`
	Careers              []Career            `yaml:"careers"`
}

func (t *CareerTables) validate() error {
	if len(t.Careers) == 0 {
		return fmt.Errorf("careers: no careers defined")
	}
	if t.Weights.total() <= 0 {
		return fmt.Errorf("careers: weights must not all be zero")
	}
	if t.DevelopmentThreshold <= 0 || t.DevelopmentThreshold > 1 {
		t.DevelopmentThreshold = 0.8
	}
	return nil
}

// skillsFor returns the skills a subject exercises. Subject names match by
// case-insensitive substring so "Advanced Mathematics" counts as mathematics.
func (t *CareerTables) skillsFor(subject string) []string {
	s := strings.ToLower(strings.TrimSpace(subject))
	if skills, ok := t.SubjectSkills[s]; ok {
		return skills
	}
	for k, skills := range t.SubjectSkills {
		if strings.Contains(s, k) {
			return skills
		}
	}
	return nil
}

// readTable prefers the file named by env and falls back to the embedded copy.
func readTable(env, name string) ([]byte, error) {
	if p := strings.TrimSpace(os.Getenv(env)); p != "" {
		return os.ReadFile(p)
	}
	return tablesFS.ReadFile(name)
}

func LoadBenchmarks() (*BenchmarkTables, error) {
	data, err := readTable(BenchmarksEnv, "benchmarks.yaml")
	if err != nil {
		return nil, fmt.Errorf("read benchmark tables: %w", err)
	}
	return ParseBenchmarks(data)
}

func ParseBenchmarks(data []byte) (*BenchmarkTables, error) {
	var t BenchmarkTables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse benchmark tables: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func LoadCareers() (*CareerTables, error) {
	data, err := readTable(CareersEnv, "careers.yaml")
	if err != nil {
		return nil, fmt.Errorf("read career tables: %w", err)
	}
	return ParseCareers(data)
}

func ParseCareers(data []byte) (*CareerTables, error) {
	var t CareerTables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse career tables: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}
