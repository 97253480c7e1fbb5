// Package recompute keeps every derived value in step with the observation
// tables. Each mutation runs under a per-student lock and one transaction
// that writes the observation, refreshes domain composites, completion
// flags, year summaries and EPR; caches, notifications and workflow triggers
// follow the commit.
package recompute

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/data/repos/issues"
	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	"github.com/yungbote/edusight-backend/internal/data/repos/summaries"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainobs "github.com/yungbote/edusight-backend/internal/domain/observations"
	"github.com/yungbote/edusight-backend/internal/notify"
	"github.com/yungbote/edusight-backend/internal/observability"
	"github.com/yungbote/edusight-backend/internal/platform/cache"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/keylock"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/scorers"
	"github.com/yungbote/edusight-backend/internal/summary"
	"github.com/yungbote/edusight-backend/internal/validation"
	"github.com/yungbote/edusight-backend/internal/workflow"
)

const DefaultDebounceTTL = time.Hour

type Config struct {
	// DebounceTTL suppresses repeated full rebuilds for a student.
	DebounceTTL            time.Duration
	AcademicYearStartMonth time.Month
}

func (c Config) withDefaults() Config {
	if c.DebounceTTL <= 0 {
		c.DebounceTTL = DefaultDebounceTTL
	}
	if c.AcademicYearStartMonth < time.January || c.AcademicYearStartMonth > time.December {
		c.AcademicYearStartMonth = time.April
	}
	return c
}

// EPRChange is one year's rating before and after a recompute. A nil side
// means the year had no rating.
type EPRChange struct {
	AcademicYear string   `json:"academic_year"`
	Before       *float64 `json:"before,omitempty"`
	After        *float64 `json:"after,omitempty"`
	BandBefore   string   `json:"band_before,omitempty"`
	BandAfter    string   `json:"band_after,omitempty"`
}

// Delta is After-Before, or nil when either side is missing.
func (e EPRChange) Delta() *float64 {
	if e.Before == nil || e.After == nil {
		return nil
	}
	d := *e.After - *e.Before
	return &d
}

type Outcome struct {
	StudentID         uuid.UUID                `json:"student_id"`
	Domain            types.Domain             `json:"domain,omitempty"`
	EntryID           *uuid.UUID               `json:"entry_id,omitempty"`
	Impact            Impact                   `json:"impact"`
	SignificantFields []string                 `json:"significant_fields,omitempty"`
	FullRebuild       bool                     `json:"full_rebuild"`
	Years             []string                 `json:"years"`
	EPRChanges        []EPRChange              `json:"epr_changes"`
	Notifications     []notify.Notification    `json:"notifications"`
	Issues            []*types.ValidationIssue `json:"issues,omitempty"`
	Events            []workflow.Event         `json:"events,omitempty"`
	CompletionPercent int                      `json:"completion_percent"`
}

type BulkItem struct {
	Index   int        `json:"index"`
	EntryID *uuid.UUID `json:"entry_id,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type BulkOutcome struct {
	Items   []BulkItem `json:"items"`
	Applied int        `json:"applied"`
	Outcome *Outcome   `json:"outcome"`
}

// UploadRefresh describes observations an ingestion already wrote.
type UploadRefresh struct {
	StudentID uuid.UUID
	Domains   []types.Domain
	Years     []string
	Readings  []workflow.Reading
	// Added counts the rows the ingestion wrote, per domain.
	Added     observations.Counts
}

type Controller interface {
	Mutate(ctx context.Context, m Mutation) (*Outcome, error)
	Delete(ctx context.Context, studentID uuid.UUID, d types.Domain, entryID uuid.UUID) (*Outcome, error)
	// Bulk applies each entry on its own and runs one sweeping rebuild at the
	// end. A failed entry is reported and does not stop the rest. The rebuild
	// is retried once; if it fails again the applied entries stay committed
	// and their summaries catch up on the next recompute of the student.
	Bulk(ctx context.Context, studentID uuid.UUID, ms []Mutation) (*BulkOutcome, error)
	Refresh(ctx context.Context, r UploadRefresh) (*Outcome, error)
	// ForceFullRecalculation rebuilds every year regardless of impact or
	// debounce state.
	ForceFullRecalculation(ctx context.Context, studentID uuid.UUID) (*Outcome, error)
}

type controller struct {
	db        *gorm.DB
	log       *logger.Logger
	cfg       Config
	obs       observations.Repository
	profiles  students.StudentProfileRepo
	issues    issues.ValidationIssueRepo
	summaries summaries.YearSummaryRepo
	scorer    scorers.Scorer
	builder   summary.Builder
	validator *validation.Validator
	cache     cache.Cache
	publisher notify.Publisher
	workflows workflow.Dispatcher
	locks     *keylock.Locker[uuid.UUID]
	clock     func() time.Time
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg Config,
	obs observations.Repository,
	profiles students.StudentProfileRepo,
	issueRepo issues.ValidationIssueRepo,
	summaryRepo summaries.YearSummaryRepo,
	scorer scorers.Scorer,
	builder summary.Builder,
	v *validation.Validator,
	c cache.Cache,
	publisher notify.Publisher,
	workflows workflow.Dispatcher,
) Controller {
	if v == nil {
		v = validation.New(nil)
	}
	if c == nil {
		c = cache.NewMemory()
	}
	if publisher == nil {
		publisher = notify.NewLog(baseLog)
	}
	if workflows == nil {
		workflows = workflow.NewLog(baseLog)
	}
	return &controller{
		db:        db,
		log:       baseLog.With("component", "RecomputeController"),
		cfg:       cfg.withDefaults(),
		obs:       obs,
		profiles:  profiles,
		issues:    issueRepo,
		summaries: summaryRepo,
		scorer:    scorer,
		builder:   builder,
		validator: v,
		cache:     c,
		publisher: publisher,
		workflows: workflows,
		locks:     keylock.New[uuid.UUID](),
		clock:     time.Now,
	}
}

var tracer = observability.Tracer("recompute")

// snapshot is the part of a student's state that notifications and triggers
// compare against.
type snapshot struct {
	counts     observations.Counts
	completion int
	summaries  map[string]*types.YearSummary
}

func (c *controller) snapshot(dbc dbctx.Context, studentID uuid.UUID) (snapshot, error) {
	if _, err := c.profiles.Ensure(dbc, studentID); err != nil {
		return snapshot{}, fmt.Errorf("ensure student profile: %w", err)
	}
	counts, err := c.obs.Counts(dbc, studentID, "")
	if err != nil {
		return snapshot{}, fmt.Errorf("count observations: %w", err)
	}
	rows, err := c.summaries.ListByStudent(dbc, studentID)
	if err != nil {
		return snapshot{}, fmt.Errorf("load year summaries: %w", err)
	}
	s := snapshot{
		counts:     counts,
		completion: domainobs.CompletionPercent(counts.Academic, counts.Psychological, counts.Physical),
		summaries:  make(map[string]*types.YearSummary, len(rows)),
	}
	for _, r := range rows {
		s.summaries[r.AcademicYear] = r
	}
	return s, nil
}

// pass is the set of derived values one cascade has to bring up to date.
type pass struct {
	studentID uuid.UUID
	before    snapshot
	domains   map[types.Domain]bool
	years     map[string]bool
	// rebuild runs the year summary and EPR steps; full widens them to every year.
	rebuild  bool
	full     bool
	readings []workflow.Reading
}

func newPass(studentID uuid.UUID, before snapshot) *pass {
	return &pass{studentID: studentID, before: before, domains: map[types.Domain]bool{}, years: map[string]bool{}}
}

func (p *pass) addYears(years ...string) {
	for _, y := range years {
		if y != "" {
			p.years[y] = true
		}
	}
}

func (c *controller) Mutate(ctx context.Context, m Mutation) (out *Outcome, err error) {
	if m.Delete {
		if m.EntryID == nil {
			return nil, errs.New(errs.KindInvalidArgument, "entry id required for delete", errs.ErrInvalidArgument)
		}
		return c.Delete(ctx, m.StudentID, m.Domain, *m.EntryID)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, tracer, "recompute.mutate",
		attribute.String("student.id", m.StudentID.String()),
		attribute.String("observation.domain", string(m.Domain)),
		attribute.Bool("observation.create", m.EntryID == nil),
	)
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	defer func() {
		impact := "rejected"
		if out != nil {
			impact = string(out.Impact)
		}
		observability.Current().ObserveRecompute(impact, err, time.Since(start))
	}()

	unlock, err := c.locks.Lock(ctx, m.StudentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out = &Outcome{StudentID: m.StudentID, Domain: m.Domain}
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		before, err := c.snapshot(dbc, m.StudentID)
		if err != nil {
			return err
		}
		var compositeBefore *float64
		if m.EntryID != nil {
			year, err := c.entryYear(dbc, m.StudentID, m.Domain, *m.EntryID)
			if err != nil {
				return err
			}
			if compositeBefore, err = c.composite(dbc, m.StudentID, m.Domain, year); err != nil {
				return err
			}
		}
		a, err := c.apply(dbc, m)
		if err != nil {
			return err
		}
		compositeAfter, err := c.composite(dbc, m.StudentID, m.Domain, a.years[len(a.years)-1])
		if err != nil {
			return err
		}

		id := a.entryID
		out.EntryID = &id
		out.Issues = a.issues
		out.SignificantFields = SignificantFields(a.before, a.after)
		out.Impact = ImpactHigh
		if !a.created {
			out.Impact = Classify(len(out.SignificantFields), compositeBefore, compositeAfter)
		}

		p := newPass(m.StudentID, before)
		p.domains[m.Domain] = true
		p.addYears(a.years...)
		if a.reading != nil {
			p.readings = append(p.readings, *a.reading)
		}
		c.plan(ctx, p, out.Impact, false)
		return c.cascade(dbc, p, out)
	})
	if err != nil {
		return nil, err
	}
	c.finish(ctx, out)
	c.log.Info("observation mutated",
		"student_id", m.StudentID,
		"domain", m.Domain,
		"entry_id", out.EntryID,
		"impact", out.Impact,
		"full_rebuild", out.FullRebuild,
		"years", out.Years,
	)
	return out, nil
}

func (c *controller) Delete(ctx context.Context, studentID uuid.UUID, d types.Domain, entryID uuid.UUID) (out *Outcome, err error) {
	if studentID == uuid.Nil || entryID == uuid.Nil {
		return nil, errs.New(errs.KindInvalidArgument, "student id and entry id required", errs.ErrInvalidArgument)
	}
	ctx, span := observability.StartSpan(ctx, tracer, "recompute.delete",
		attribute.String("student.id", studentID.String()),
		attribute.String("observation.domain", string(d)),
	)
	defer func() { observability.EndSpan(span, err) }()

	unlock, err := c.locks.Lock(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out = &Outcome{StudentID: studentID, Domain: d, EntryID: &entryID, Impact: ImpactHigh}
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		before, err := c.snapshot(dbc, studentID)
		if err != nil {
			return err
		}
		a, err := c.remove(dbc, studentID, d, entryID)
		if err != nil {
			return err
		}
		out.SignificantFields = SignificantFields(a.before, a.after)
		p := newPass(studentID, before)
		p.domains[d] = true
		p.addYears(a.years...)
		c.plan(ctx, p, ImpactHigh, false)
		return c.cascade(dbc, p, out)
	})
	if err != nil {
		return nil, err
	}
	c.finish(ctx, out)
	c.log.Info("observation deleted", "student_id", studentID, "domain", d, "entry_id", entryID, "years", out.Years)
	return out, nil
}

func (c *controller) Bulk(ctx context.Context, studentID uuid.UUID, ms []Mutation) (res *BulkOutcome, err error) {
	if studentID == uuid.Nil {
		return nil, errs.New(errs.KindInvalidArgument, "student id required", errs.ErrInvalidArgument)
	}
	ctx, span := observability.StartSpan(ctx, tracer, "recompute.bulk",
		attribute.String("student.id", studentID.String()),
		attribute.Int("bulk.entries", len(ms)),
	)
	defer func() { observability.EndSpan(span, err) }()

	unlock, err := c.locks.Lock(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	before, err := c.snapshot(dbctx.Context{Ctx: ctx}, studentID)
	if err != nil {
		return nil, err
	}
	p := newPass(studentID, before)
	res = &BulkOutcome{Items: make([]BulkItem, 0, len(ms))}
	var created []*types.ValidationIssue

	for i, m := range ms {
		m.StudentID = studentID
		item := BulkItem{Index: i}
		var a *applied
		err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			dbc := dbctx.Context{Ctx: ctx, Tx: tx}
			var err error
			if m.Delete {
				if m.EntryID == nil {
					return errs.New(errs.KindInvalidArgument, "entry id required for delete", errs.ErrInvalidArgument)
				}
				a, err = c.remove(dbc, studentID, m.Domain, *m.EntryID)
			} else {
				if err := m.validate(); err != nil {
					return err
				}
				a, err = c.apply(dbc, m)
			}
			return err
		})
		if err != nil {
			item.Error = err.Error()
			res.Items = append(res.Items, item)
			c.log.Warn("bulk entry rejected", "student_id", studentID, "index", i, "error", err)
			continue
		}
		id := a.entryID
		item.EntryID = &id
		res.Items = append(res.Items, item)
		res.Applied++
		p.domains[a.domain] = true
		p.addYears(a.years...)
		if a.reading != nil {
			p.readings = append(p.readings, *a.reading)
		}
		created = append(created, a.issues...)
	}

	out := &Outcome{StudentID: studentID, Impact: ImpactHigh, Issues: created}
	if res.Applied > 0 {
		c.plan(ctx, p, ImpactHigh, true)
		if err = c.sweep(ctx, p, out); err != nil {
			c.log.Warn("bulk rebuild failed; retrying", "student_id", studentID, "applied", res.Applied, "error", err)
			out = &Outcome{StudentID: studentID, Impact: ImpactHigh, Issues: created}
			if err = c.sweep(ctx, p, out); err != nil {
				return nil, fmt.Errorf("rebuild after bulk: %w", err)
			}
		}
		c.finish(ctx, out)
	}
	res.Outcome = out
	c.log.Info("bulk mutation applied", "student_id", studentID, "entries", len(ms), "applied", res.Applied)
	return res, nil
}

// sweep runs one cascade in its own transaction.
func (c *controller) sweep(ctx context.Context, p *pass, out *Outcome) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return c.cascade(dbctx.Context{Ctx: ctx, Tx: tx}, p, out)
	})
}

func (c *controller) Refresh(ctx context.Context, r UploadRefresh) (out *Outcome, err error) {
	if r.StudentID == uuid.Nil {
		return nil, errs.New(errs.KindInvalidArgument, "student id required", errs.ErrInvalidArgument)
	}
	ctx, span := observability.StartSpan(ctx, tracer, "recompute.refresh",
		attribute.String("student.id", r.StudentID.String()),
		attribute.StringSlice("recompute.years", r.Years),
	)
	defer func() { observability.EndSpan(span, err) }()

	unlock, err := c.locks.Lock(ctx, r.StudentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out = &Outcome{StudentID: r.StudentID, Impact: ImpactHigh}
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		before, err := c.snapshot(dbc, r.StudentID)
		if err != nil {
			return err
		}
		// The ingestion already committed, so the snapshot includes its rows.
		before.counts = before.counts.Minus(r.Added)
		before.completion = domainobs.CompletionPercent(before.counts.Academic, before.counts.Psychological, before.counts.Physical)
		p := newPass(r.StudentID, before)
		for _, d := range r.Domains {
			p.domains[d] = true
		}
		p.addYears(r.Years...)
		p.readings = r.Readings
		c.plan(ctx, p, ImpactHigh, false)
		return c.cascade(dbc, p, out)
	})
	if err != nil {
		return nil, err
	}
	c.finish(ctx, out)
	return out, nil
}

func (c *controller) ForceFullRecalculation(ctx context.Context, studentID uuid.UUID) (out *Outcome, err error) {
	if studentID == uuid.Nil {
		return nil, errs.New(errs.KindInvalidArgument, "student id required", errs.ErrInvalidArgument)
	}
	ctx, span := observability.StartSpan(ctx, tracer, "recompute.force_full",
		attribute.String("student.id", studentID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	unlock, err := c.locks.Lock(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out = &Outcome{StudentID: studentID, Impact: ImpactHigh}
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		before, err := c.snapshot(dbc, studentID)
		if err != nil {
			return err
		}
		p := newPass(studentID, before)
		for _, d := range types.Domains() {
			p.domains[d] = true
		}
		c.plan(ctx, p, ImpactHigh, true)
		return c.cascade(dbc, p, out)
	})
	if err != nil {
		return nil, err
	}
	c.finish(ctx, out)
	c.log.Info("full recalculation finished", "student_id", studentID, "years", out.Years)
	return out, nil
}

// plan decides how far a cascade reaches. Low impact skips the summary and
// EPR steps; high impact asks for a full rebuild, which the debounce key
// limits to one per window unless forced.
func (c *controller) plan(ctx context.Context, p *pass, impact Impact, force bool) {
	switch impact {
	case ImpactLow:
		p.rebuild = false
	case ImpactMedium:
		p.rebuild = true
	case ImpactHigh:
		p.rebuild = true
		p.full = c.claimFull(ctx, p.studentID, force)
	}
}

func (c *controller) claimFull(ctx context.Context, studentID uuid.UUID, force bool) bool {
	key := cache.RecomputeDebounceKey(studentID)
	stamp := []byte(c.now().Format(time.RFC3339))
	if force {
		if err := c.cache.Set(ctx, key, stamp, c.cfg.DebounceTTL); err != nil {
			c.log.Warn("debounce key not set", "student_id", studentID, "error", err)
		}
		return true
	}
	ok, err := c.cache.SetNX(ctx, key, stamp, c.cfg.DebounceTTL)
	if err != nil {
		c.log.Warn("debounce check failed; rebuilding all years", "student_id", studentID, "error", err)
		return true
	}
	if !ok {
		c.log.Debug("full rebuild debounced", "student_id", studentID)
	}
	return ok
}

// cascade refreshes composites, completion flags, year summaries and EPR for
// p inside the caller's transaction, and fills out.
func (c *controller) cascade(dbc dbctx.Context, p *pass, out *Outcome) error {
	now := c.now()
	current := domainobs.AcademicYearFor(now, c.cfg.AcademicYearStartMonth)

	allYears, err := c.obs.Years(dbc, p.studentID)
	if err != nil {
		return fmt.Errorf("list observation years: %w", err)
	}

	years := map[string]bool{}
	for y := range p.years {
		years[y] = true
	}
	if p.rebuild {
		years[current] = true
		if p.full {
			for _, y := range allYears {
				years[y] = true
			}
			for y := range p.before.summaries {
				years[y] = true
			}
		}
	}
	ordered := make([]string, 0, len(years))
	for y := range years {
		ordered = append(ordered, y)
	}
	sort.Strings(ordered)

	// Step 2: domain composites on the latest observation of each year.
	for _, d := range []types.Domain{types.DomainPsychological, types.DomainPhysical} {
		if !p.domains[d] && !p.full {
			continue
		}
		for _, y := range ordered {
			if err := c.scorer.Refresh(dbc, p.studentID, d, y); err != nil {
				return fmt.Errorf("refresh %s composites for %s: %w", d, y, err)
			}
		}
	}

	// Step 1: completion flags.
	counts, err := c.obs.Counts(dbc, p.studentID, "")
	if err != nil {
		return fmt.Errorf("count observations: %w", err)
	}
	if _, err := c.profiles.LockForUpdate(dbc, p.studentID); err != nil {
		return fmt.Errorf("lock student profile: %w", err)
	}
	completion := domainobs.CompletionPercent(counts.Academic, counts.Psychological, counts.Physical)
	if err := c.profiles.UpdateFields(dbc, p.studentID, map[string]interface{}{
		"has_academic":          counts.Academic > 0,
		"has_psychological":     counts.Psychological > 0,
		"has_physical":          counts.Physical > 0,
		"completion_percent":    completion,
		"academic_years":        datatypes.JSONSlice[string](allYears),
		"current_academic_year": current,
		"last_mutation_at":      now,
	}); err != nil {
		return fmt.Errorf("update completion flags: %w", err)
	}
	out.CompletionPercent = completion

	// Steps 3-4: year summaries and EPR.
	if p.rebuild {
		out.FullRebuild = p.full
		out.Years = ordered
		for _, y := range ordered {
			res, err := c.builder.Rebuild(dbc, p.studentID, y)
			if err != nil {
				return fmt.Errorf("rebuild year summary %s: %w", y, err)
			}
			ch := EPRChange{AcademicYear: y}
			if prev := p.before.summaries[y]; prev != nil {
				ch.Before = prev.AnnualEPRScore
				ch.BandBefore = prev.EPRPerformanceBand
			}
			if res != nil {
				ch.After = res.Summary.AnnualEPRScore
				ch.BandAfter = res.Summary.EPRPerformanceBand
			}
			if !sameRating(ch) {
				out.EPRChanges = append(out.EPRChanges, ch)
				out.Notifications = append(out.Notifications,
					notify.EPRChange(p.studentID, y, ch.Before, ch.After, ch.BandBefore, ch.BandAfter, now)...)
			}
		}
	}
	if out.Years == nil {
		out.Years = []string{}
	}

	// Step 6 and 7 inputs; delivery happens after commit.
	out.Notifications = append(out.Notifications, notify.Completion(p.studentID, p.before.completion, completion, now)...)
	out.Events = workflow.Evaluate(
		workflow.State{
			StudentID:         p.studentID,
			Academic:          p.before.counts.Academic,
			Psychological:     p.before.counts.Psychological,
			Physical:          p.before.counts.Physical,
			CompletionPercent: p.before.completion,
		},
		workflow.State{
			StudentID:         p.studentID,
			Academic:          counts.Academic,
			Psychological:     counts.Psychological,
			Physical:          counts.Physical,
			CompletionPercent: completion,
			Readings:          p.readings,
		},
		now,
	)
	return nil
}

func sameRating(ch EPRChange) bool {
	if ch.BandBefore != ch.BandAfter {
		return false
	}
	switch {
	case ch.Before == nil && ch.After == nil:
		return true
	case ch.Before == nil || ch.After == nil:
		return false
	}
	return *ch.Before == *ch.After
}

// finish runs the post-commit steps. Their failures are logged and never
// undo the mutation.
func (c *controller) finish(ctx context.Context, out *Outcome) {
	m := observability.Current()
	for _, n := range out.Notifications {
		m.IncNotification(string(n.Kind))
	}
	if err := cache.InvalidateStudent(ctx, c.cache, out.StudentID); err != nil {
		c.log.Warn("analytics cache not invalidated", "student_id", out.StudentID, "error", err)
	}
	for _, n := range out.Notifications {
		if err := c.publisher.Publish(ctx, n); err != nil {
			c.log.Warn("notification not published", "student_id", out.StudentID, "kind", n.Kind, "error", err)
		}
	}
	for _, ev := range out.Events {
		if err := c.workflows.Dispatch(ctx, ev); err != nil {
			c.log.Warn("workflow trigger failed", "student_id", out.StudentID, "event", ev.Type, "error", err)
		}
	}
	if out.Notifications == nil {
		out.Notifications = []notify.Notification{}
	}
	if out.EPRChanges == nil {
		out.EPRChanges = []EPRChange{}
	}
}

func (c *controller) entryYear(dbc dbctx.Context, studentID uuid.UUID, d types.Domain, id uuid.UUID) (string, error) {
	var (
		year  string
		found bool
		err   error
	)
	switch d {
	case types.DomainAcademic:
		var o *types.AcademicObservation
		if o, err = c.obs.AcademicRepo().GetByID(dbc, studentID, id); o != nil {
			year, found = o.AcademicYear, true
		}
	case types.DomainPsychological:
		var o *types.PsychologicalObservation
		if o, err = c.obs.PsychologicalRepo().GetByID(dbc, studentID, id); o != nil {
			year, found = o.AcademicYear, true
		}
	case types.DomainPhysical:
		var o *types.PhysicalObservation
		if o, err = c.obs.PhysicalRepo().GetByID(dbc, studentID, id); o != nil {
			year, found = o.AcademicYear, true
		}
	}
	if err != nil {
		return "", err
	}
	if !found {
		return "", notFound(d, id)
	}
	return year, nil
}

// composite is the domain score the EPR composer would use for the year.
func (c *controller) composite(dbc dbctx.Context, studentID uuid.UUID, d types.Domain, year string) (*float64, error) {
	switch d {
	case types.DomainAcademic:
		s, err := c.scorer.Academic(dbc, studentID, year)
		return s.Score, err
	case types.DomainPsychological:
		s, err := c.scorer.Psychological(dbc, studentID, year)
		return s.Score, err
	case types.DomainPhysical:
		s, err := c.scorer.Physical(dbc, studentID, year)
		return s.Score, err
	}
	return nil, errors.New("unknown domain")
}
