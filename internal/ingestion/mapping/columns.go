package mapping

import (
	"regexp"
	"strings"

	types "github.com/yungbote/edusight-backend/internal/domain"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeLabel lower-cases a column label and folds punctuation and
// whitespace runs into single underscores.
func NormalizeLabel(s string) string {
	s = nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	return strings.Trim(s, "_")
}

// minReverseMatch keeps very short labels like "id" from matching inside
// every alias.
const minReverseMatch = 3

// ColumnMap assigns canonical field names to column indexes.
type ColumnMap struct {
	Domain   types.Domain
	Fields   map[string]int
	Unmapped []string
}

// MapColumns assigns each canonical field of d to the first matching column.
// Exact label matches are taken first; remaining fields then match by
// substring in either direction. A column is assigned to at most one field.
func MapColumns(d types.Domain, columns []string) ColumnMap {
	out := ColumnMap{Domain: d, Fields: map[string]int{}}
	labels := make([]string, len(columns))
	for i, c := range columns {
		labels[i] = NormalizeLabel(c)
	}
	used := make([]bool, len(columns))
	fields := Fields(d)

	for _, f := range fields {
		for i, l := range labels {
			if used[i] || l == "" {
				continue
			}
			if containsString(f.Aliases, l) {
				out.Fields[f.Name] = i
				used[i] = true
				break
			}
		}
	}
	for _, f := range fields {
		if _, ok := out.Fields[f.Name]; ok {
			continue
		}
		for i, l := range labels {
			if used[i] || l == "" {
				continue
			}
			if fuzzyMatch(f.Aliases, l) {
				out.Fields[f.Name] = i
				used[i] = true
				break
			}
		}
	}
	for i, c := range columns {
		if !used[i] && strings.TrimSpace(c) != "" {
			out.Unmapped = append(out.Unmapped, c)
		}
	}
	return out
}

// Record extracts the mapped cells of one row into canonical raw values.
// Blank cells are left out.
func (m ColumnMap) Record(row []string) map[string]string {
	out := map[string]string{}
	for name, idx := range m.Fields {
		if idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		out[name] = v
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func fuzzyMatch(aliases []string, label string) bool {
	for _, a := range aliases {
		if strings.Contains(label, a) {
			return true
		}
		if len(label) >= minReverseMatch && strings.Contains(a, label) {
			return true
		}
	}
	return false
}
