package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/domain/issues"
	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/ingestion/extractor"
	"github.com/yungbote/edusight-backend/internal/ingestion/mapping"
	"github.com/yungbote/edusight-backend/internal/validation"
)

const (
	structuredConfidenceCap   = 0.8
	structuredConfidenceScale = 0.3
	textConfidenceFloor       = 0.1
	textConfidenceSpan        = 0.7
	// Pattern hits at which text confidence saturates.
	textConfidenceHits = 6
)

// candidate is one validated row that will become an observation unless
// dropped.
type candidate struct {
	domain   types.Domain
	sheet    string
	index    int
	values   mapping.Values
	findings []validation.Finding
	drop     bool
}

// plan is everything an extraction yields before persistence.
type plan struct {
	rows       []uploads.ExtractedRow
	candidates []candidate
	notes      []validation.Finding
	domains    map[types.Domain]int
	detected   types.Domain
	total      int
	hits       int
	textBased  bool
}

func newPlan() *plan {
	return &plan{domains: map[types.Domain]int{}, detected: types.DomainGeneric}
}

// kept counts candidates that will be persisted.
func (p *plan) kept() int {
	n := 0
	for _, c := range p.candidates {
		if !c.drop {
			n++
		}
	}
	return n
}

// Confidence for tabular input is min(0.8, 0.3*kept/rows); for text input it
// grows with the number of pattern hits from 0.1 to 0.8.
func (p *plan) confidence() float64 {
	if p.textBased {
		r := math.Min(1, float64(p.hits)/textConfidenceHits)
		return textConfidenceFloor + textConfidenceSpan*r
	}
	if p.total == 0 {
		return 0
	}
	return math.Min(structuredConfidenceCap, structuredConfidenceScale*float64(p.kept())/float64(p.total))
}

// primaryDomain is the domain that produced the most kept rows.
func (p *plan) primaryDomain() types.Domain {
	best, n := p.detected, 0
	for _, d := range types.Domains() {
		if p.domains[d] > n {
			best, n = d, p.domains[d]
		}
	}
	return best
}

type planner struct {
	v    *validation.Validator
	hint types.Domain
}

func (pl planner) build(ex *extractor.Extraction) *plan {
	p := newPlan()
	for _, t := range ex.Tables {
		pl.table(p, t)
	}
	// Text is only mined when the tables gave nothing, or for non-tabular
	// formats whose tables did not map.
	if p.kept() == 0 && strings.TrimSpace(ex.Text) != "" && !ex.Format.Structured() {
		pl.text(p, ex.Text)
	}
	if !ex.Format.Structured() {
		p.textBased = true
		if p.hits == 0 {
			p.hits = p.kept()
		}
	}
	return p
}

// table detects the domain from the header row, maps columns, then
// validates each body row. Each sheet is detected on its own.
func (pl planner) table(p *plan, t extractor.Table) {
	header := t.Header()
	if len(header) == 0 {
		return
	}
	det := mapping.DetectColumns(header)
	d := mapping.Resolve(det, pl.hint)
	if p.detected == types.DomainGeneric {
		p.detected = d
	}
	body := t.Body()
	if d == types.DomainGeneric {
		for i, row := range body {
			raw := map[string]string{}
			for j, cell := range row {
				if j < len(header) && cell != "" {
					raw[header[j]] = cell
				}
			}
			r := mapping.BuildRow(d, i, mapping.NewValues(), raw)
			r.Sheet = t.Name
			p.rows = append(p.rows, r)
			p.total++
		}
		p.notes = append(p.notes, validation.Finding{
			Kind:        issues.KindOther,
			Code:        issues.CodeUnknownDomain,
			Severity:    issues.SeverityHigh,
			Description: fmt.Sprintf("could not determine the data domain of %q", t.Name),
		})
		return
	}

	cm := mapping.MapColumns(d, header)
	for _, col := range cm.Unmapped {
		p.notes = append(p.notes, validation.Finding{
			Field:        col,
			Kind:         issues.KindOther,
			Code:         issues.CodeUnmappedColumn,
			Severity:     issues.SeverityLow,
			CurrentValue: col,
			Description:  fmt.Sprintf("column %q in %q was not mapped to any %s field", col, t.Name, d),
		})
	}
	for i, row := range body {
		rec := cm.Record(row)
		if len(rec) == 0 {
			continue
		}
		p.total++
		pl.add(p, candidate{domain: d, sheet: t.Name, index: i}, rec)
		p.hits += len(rec)
	}
}

func (pl planner) text(p *plan, text string) {
	det := mapping.DetectText(text)
	d := mapping.Resolve(det, pl.hint)
	p.detected = d
	if d == types.DomainGeneric {
		p.notes = append(p.notes, validation.Finding{
			Kind:        issues.KindOther,
			Code:        issues.CodeUnknownDomain,
			Severity:    issues.SeverityHigh,
			Description: "could not determine the data domain of the document text",
		})
		return
	}
	m := mapping.MatchText(d, text)
	p.hits = m.Hits
	for i, rec := range m.Records {
		if len(rec) == 0 {
			continue
		}
		p.total++
		pl.add(p, candidate{domain: d, index: i}, rec)
	}
}

func (pl planner) add(p *plan, c candidate, rec map[string]string) {
	res := pl.v.Check(c.domain, rec)
	c.values = res.Values
	c.findings = res.Findings
	c.drop = res.Drop

	row := mapping.BuildRow(c.domain, c.index, res.Values, rec)
	row.Sheet = c.sheet
	if c.drop {
		row.Status = uploads.RowStatusDropped
	} else {
		p.domains[c.domain]++
	}
	p.rows = append(p.rows, row)
	p.candidates = append(p.candidates, c)
}

// dedupeAcademic drops later rows that repeat an academic key within the
// upload, since the key is unique per student and year.
func dedupeAcademic(cands []candidate, yearOf func(candidate) string) {
	seen := map[string]bool{}
	for i := range cands {
		c := &cands[i]
		if c.drop || c.domain != types.DomainAcademic {
			continue
		}
		key := academicKey(yearOf(*c), c.values)
		if seen[key] {
			c.drop = true
			c.findings = append(c.findings, duplicateFinding(c.values))
			continue
		}
		seen[key] = true
	}
}

func academicKey(year string, v mapping.Values) string {
	return strings.Join([]string{
		year,
		strings.ToLower(strings.TrimSpace(v.Text[mapping.FieldSubject])),
		assessmentType(v),
	}, "\x00")
}

func assessmentType(v mapping.Values) string {
	t := strings.ToLower(strings.TrimSpace(v.Text[mapping.FieldAssessmentType]))
	if t == "" {
		return "exam"
	}
	return t
}

func duplicateFinding(v mapping.Values) validation.Finding {
	subject := strings.TrimSpace(v.Text[mapping.FieldSubject])
	return validation.Finding{
		Field:        mapping.FieldSubject,
		Kind:         issues.KindDuplicateEntry,
		Code:         issues.CodeDuplicate,
		Severity:     issues.SeverityMedium,
		CurrentValue: subject,
		Description:  fmt.Sprintf("%s %s already recorded for this academic year", subject, assessmentType(v)),
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type flaggedCandidate struct {
	c     *candidate
	obsID *uuid.UUID
}

type lowConfidenceIssue struct {
	f      validation.Finding
	domain types.Domain
	obsID  *uuid.UUID
}

// lowConfidence raises review issues for an extraction below the confidence
// threshold. Text-derived values are flagged field by field; tabular input
// gets a single upload-level issue.
func lowConfidence(kept []flaggedCandidate, confidence float64, perField bool) []lowConfidenceIssue {
	desc := fmt.Sprintf("extraction confidence %.2f is below the review threshold", confidence)
	if !perField || len(kept) == 0 {
		d := types.DomainGeneric
		if len(kept) > 0 {
			d = kept[0].c.domain
		}
		return []lowConfidenceIssue{{
			f: validation.Finding{
				Kind:        issues.KindOther,
				Code:        issues.CodeLowConfidence,
				Severity:    issues.SeverityMedium,
				Description: desc,
			},
			domain: d,
		}}
	}
	var out []lowConfidenceIssue
	for _, k := range kept {
		names := make([]string, 0, len(k.c.values.Numbers)+len(k.c.values.Text))
		vals := map[string]string{}
		for n, x := range k.c.values.Numbers {
			names = append(names, n)
			vals[n] = strconv.FormatFloat(x, 'f', -1, 64)
		}
		for n, t := range k.c.values.Text {
			names = append(names, n)
			vals[n] = t
		}
		sort.Strings(names)
		for _, n := range names {
			out = append(out, lowConfidenceIssue{
				f: validation.Finding{
					Field:        n,
					Kind:         issues.KindOther,
					Code:         issues.CodeLowConfidence,
					Severity:     issues.SeverityMedium,
					CurrentValue: vals[n],
					Description:  fmt.Sprintf("verify %s: %s", n, desc),
				},
				domain: k.c.domain,
				obsID:  k.obsID,
			})
		}
	}
	return out
}
